package catalog

import "slices"

// reconcileVersions moves branch onto update.Version. The matching version is
// refreshed and gains branch once; every other version loses branch and is
// dropped when no branch reports it anymore. A missing version is appended.
func reconcileVersions(versions []Version, update Version, branch string) []Version {
	out := make([]Version, 0, len(versions)+1)
	matched := false

	for _, v := range versions {
		if v.Version == update.Version {
			matched = true
			v.LastSync = update.LastSync
			v.Soa = update.Soa
			v.Swagger = update.Swagger
			v.APIs = update.APIs
			if update.Documentation != nil {
				v.Documentation = update.Documentation
			}
			if !v.HasBranch(branch) {
				v.Branches = append(slices.Clone(v.Branches), branch)
			}
			out = append(out, v)
			continue
		}

		v.Branches = withoutBranch(v.Branches, branch)
		if len(v.Branches) == 0 {
			continue
		}
		out = append(out, v)
	}

	if !matched {
		update.Branches = []string{branch}
		out = append(out, update)
	}
	return out
}

// RemoveBranch removes branch from every version of entry, dropping versions
// left without branches. It returns the updated copy and whether anything changed.
func RemoveBranch(entry *Entry, branch string) (*Entry, bool, error) {
	out, err := entry.Clone()
	if err != nil {
		return nil, false, err
	}

	changed := false
	versions := make([]Version, 0, len(out.Versions))
	for _, v := range out.Versions {
		if v.HasBranch(branch) {
			changed = true
			v.Branches = withoutBranch(v.Branches, branch)
		}
		if len(v.Branches) > 0 {
			versions = append(versions, v)
		}
	}
	out.Versions = versions
	return out, changed, nil
}

func withoutBranch(branches []string, branch string) []string {
	return slices.DeleteFunc(slices.Clone(branches), func(b string) bool { return b == branch })
}
