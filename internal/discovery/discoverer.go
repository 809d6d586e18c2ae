package discovery

import (
	"strings"

	"go.uber.org/zap"

	"ctr/internal/domain"
	"ctr/internal/logging"
)

// Discoverer selects the test methods of a definition
type Discoverer struct {
	prefix string
	logger *zap.Logger
}

// NewDiscoverer creates a Discoverer matching method names against prefix
func NewDiscoverer(prefix string, logger *zap.Logger) *Discoverer {
	return &Discoverer{prefix: prefix, logger: logging.OrNop(logger)}
}

// Matches reports whether name is longer than the prefix and starts with it,
// ignoring case.
func (d *Discoverer) Matches(name string) bool {
	n := len(d.prefix)
	return len(name) > n && strings.EqualFold(name[:n], d.prefix)
}

// Discover returns the invokable tests declared on def in declaration order,
// plus a warning for every prefix match that cannot run as a test.
func (d *Discoverer) Discover(qualified string, def domain.Definition) ([]domain.Test, []domain.Warning) {
	var tests []domain.Test
	var warnings []domain.Warning

	for _, m := range def.Methods {
		if !d.Matches(m.Name) {
			continue
		}

		id := domain.NewTestID(qualified, m.Name)
		if m.DeclaredBy != "" && m.DeclaredBy != def.Name && m.DeclaredBy != qualified {
			d.logger.Debug("skipping inherited test method",
				zap.String("test", string(id)),
				zap.String("declared_by", m.DeclaredBy))
			continue
		}

		sig, reason := domain.SignatureOf(m)
		if sig == domain.SignatureInvalid {
			warnings = append(warnings, domain.Warning{ID: id, Reason: reason})
			continue
		}

		tests = append(tests, domain.Test{ID: id, Signature: sig, Body: m.Body})
	}

	return tests, warnings
}
