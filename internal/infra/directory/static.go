package directory

import (
	"context"
	"sort"

	"github.com/totegamma/officechat/internal/domain"
)

// Static serves identities listed in the config file.
type Static struct {
	byID map[string]domain.Identity
}

func NewStatic(identities []domain.Identity) *Static {
	byID := make(map[string]domain.Identity, len(identities))
	for _, identity := range identities {
		if identity.Role == "" {
			identity.Role = domain.RoleUser
		}
		if identity.DisplayName == "" {
			identity.DisplayName = identity.ID
		}
		byID[identity.ID] = identity
	}
	return &Static{byID: byID}
}

func (s *Static) Lookup(ctx context.Context, id string) (domain.Identity, error) {
	identity, ok := s.byID[id]
	if !ok {
		return domain.Identity{}, domain.NotFoundError{Resource: "user"}
	}
	return identity, nil
}

func (s *Static) List(ctx context.Context) ([]domain.Identity, error) {
	out := make([]domain.Identity, 0, len(s.byID))
	for _, identity := range s.byID {
		out = append(out, identity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
