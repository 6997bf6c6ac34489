package assets

import (
	"maps"
	"slices"

	"ici-report/internal/domain"
)

// CollectReferences lists every image a report can draw: company logo, client
// logo, both signatures, then entry photos and per-activity photos. Empty
// references are dropped and duplicates keep their first position.
func CollectReferences(report domain.ServiceReport, client domain.Client, company domain.CompanySettings) []string {
	refs := []string{company.LogoURL, client.LogoURL, report.ProviderSignature, report.ClientSignature}
	for _, e := range report.Entries {
		refs = append(refs, e.PhotoURLs...)
		for _, id := range slices.Sorted(maps.Keys(e.ActivityData)) {
			refs = append(refs, e.ActivityData[id].PhotoURLs...)
		}
	}
	return uniqueRefs(refs)
}

func uniqueRefs(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
