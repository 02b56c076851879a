package statebox

import (
	"context"
	"fmt"
	"strings"

	sberr "git.home.luguber.info/inful/statebox/internal/errors"
)

// UpdateMetadataOptions tunes a single UpdateMetadata call.
type UpdateMetadataOptions struct {
	// SkipSave applies the update to the in-memory cache only.
	SkipSave bool
}

// UpdateMetadata applies the given metadata updates. A nested-map value is
// unioned key-by-key into an existing map under the same key (new keys win);
// scalar values overwrite. Nil values are rejected; fields are never removed,
// matching how document merges treat metadata.
func (s *StateBox) UpdateMetadata(ctx context.Context, updates Metadata, opts ...UpdateMetadataOptions) error {
	if len(updates) == 0 {
		return sberr.New(sberr.KindValidation, "no metadata updates supplied")
	}
	keys := make([]string, 0, len(updates))
	for k, v := range updates {
		if strings.TrimSpace(k) == "" {
			return sberr.New(sberr.KindValidation, "metadata keys must not be blank")
		}
		if v == nil {
			return sberr.Newf(sberr.KindValidation, "metadata value for %q must not be nil", k)
		}
		keys = append(keys, k)
	}
	var opt UpdateMetadataOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	_, err := s.mutate(ctx, !opt.SkipSave, func(doc *StateDocument) (Event, error) {
		if doc.Metadata == nil {
			doc.Metadata = Metadata{}
		}
		for k, v := range updates {
			newMap, newIsMap := asStringMap(v)
			if !newIsMap {
				doc.Metadata[k] = v
				continue
			}
			existing, existingIsMap := asStringMap(doc.Metadata[k])
			if !existingIsMap {
				doc.Metadata[k] = copyStringMap(newMap)
				continue
			}
			union := copyStringMap(existing)
			for nk, nv := range newMap {
				union[nk] = nv
			}
			doc.Metadata[k] = union
		}
		return Event{
			Release: s.release,
			Type:    EventMetadataUpdated,
			Detail:  fmt.Sprintf("keys: %s", strings.Join(keys, ", ")),
			At:      s.now(),
		}, nil
	})
	return err
}

// GetMetadata returns the metadata value for a key.
func (s *StateBox) GetMetadata(ctx context.Context, key string) (any, bool, error) {
	doc, err := s.Load(ctx, false)
	if err != nil {
		return nil, false, err
	}
	v, ok := doc.Metadata[key]
	return v, ok, nil
}
