package statebox

import "time"

// ReleaseInfoProvider seeds default metadata when a state document is
// synthesized for a release that has never been persisted. Implementations
// typically consult an external release-metadata service; the static provider
// below covers tests and bootstrap.
type ReleaseInfoProvider interface {
	DefaultMetadata(release string) Metadata
}

// StaticReleaseInfo is a ReleaseInfoProvider returning a fixed metadata seed.
type StaticReleaseInfo struct {
	Metadata Metadata
}

func (s StaticReleaseInfo) DefaultMetadata(string) Metadata {
	return cloneMetadata(s.Metadata)
}

// newDefaultDocument synthesizes the initial document for a release. It is
// not persisted until the first save.
func newDefaultDocument(release string, provider ReleaseInfoProvider, now time.Time) *StateDocument {
	var meta Metadata
	if provider != nil {
		meta = provider.DefaultMetadata(release)
	}
	if meta == nil {
		meta = Metadata{}
	}
	return &StateDocument{
		SchemaVersion: SchemaVersion,
		Release:       release,
		CreatedAt:     now,
		UpdatedAt:     now,
		Metadata:      meta,
	}
}
