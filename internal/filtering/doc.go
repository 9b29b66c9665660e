// Package filtering decides which discovered repositories an account keeps.
//
// An account filter is either a whitelist or a blacklist of repository names.
// Names are glob patterns matched with gobwas/glob, so "*" also matches
// across the slash of a full "owner/repo" name:
//
//   - "team/*" matches every repository of team
//   - "*-service" matches "team/checkout-service" and "checkout-service"
//   - "svc?" matches "svc1" but not "svc10"
//
// A pattern is tried against both the full name and the short name of a
// repository. A whitelist keeps only matching repositories; a blacklist drops
// them. Repositories are kept when no filter is configured.
package filtering
