package versions

import "github.com/Masterminds/semver/v3"

// IsNewerVersion reports whether newVersion is strictly greater than oldVersion.
// It uses semantic versioning for comparison when both strings are valid semver,
// and falls back to lexicographic string comparison otherwise.
func IsNewerVersion(newVersion, oldVersion string) bool {
	newSemver, errNew := semver.NewVersion(newVersion)
	oldSemver, errOld := semver.NewVersion(oldVersion)

	if errNew != nil || errOld != nil {
		// Fallback to string comparison if semver parsing fails
		return newVersion > oldVersion
	}

	return newSemver.GreaterThan(oldSemver)
}

// Latest returns the newest of candidates by IsNewerVersion ordering, or ""
// when candidates is empty
func Latest(candidates []string) string {
	latest := ""
	for i, v := range candidates {
		if i == 0 || IsNewerVersion(v, latest) {
			latest = v
		}
	}
	return latest
}
