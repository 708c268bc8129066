// Package invocation groups a request's targets by (serverUri,
// sessionSettings) into one Invocation per group.
package invocation

import (
	"fmt"

	"github.com/opcua-go/sessionfactory/internal/domain"
)

// DefaultFactory groups targets by (ServerURI, Settings) under the
// caller's Mask.
type DefaultFactory struct{}

// New returns a DefaultFactory.
func New() *DefaultFactory { return &DefaultFactory{} }

// Create implements domain.InvocationFactory.
func (f *DefaultFactory) Create(req domain.Request, mask domain.Mask) (map[string]*domain.Invocation, error) {
	groups := make(map[string]*domain.Invocation)

	for _, target := range req.Targets() {
		if !mask.Contains(target.Index) {
			continue
		}
		key := groupKey(target.ServerURI, target.Settings)
		inv, ok := groups[key]
		if !ok {
			inv = &domain.Invocation{
				ServerURI: target.ServerURI,
				Settings:  target.Settings,
			}
			groups[key] = inv
		}
		inv.Targets = append(inv.Targets, target)
	}

	return groups, nil
}

func groupKey(serverURI string, settings domain.SessionSettings) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d", serverURI, settings.SecurityPolicy, settings.SecurityMode, settings.Locale, settings.Timeout)
}
