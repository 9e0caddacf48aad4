// Package party deduplicates party identities across batches using the
// canonical tax id as the join key, and applies operator-driven display
// name unification.
package party

import (
	"fmt"
	"strings"

	"github.com/casetrace/casetrace/pkg/models"
)

// ValidationError rejects an invalid unification request. No partial
// rename is ever applied.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("unification rejected: %s", e.Reason)
}

const unidentifiedPrefix = "name:"

// Key returns the stable party key for a (tax id, display name) pair:
// the canonical tax id when present, otherwise a synthetic bucket keyed
// by the raw display name. Unidentified buckets are never merged with
// identified parties.
func Key(taxID, displayName string) string {
	if taxID != "" {
		return taxID
	}
	return unidentifiedPrefix + strings.ToUpper(strings.TrimSpace(displayName))
}

// IsUnidentified reports whether key names a synthetic unidentified bucket
func IsUnidentified(key string) bool {
	return strings.HasPrefix(key, unidentifiedPrefix)
}

// Sighting is one appearance of a party in a source batch
type Sighting struct {
	BatchID     string
	TaxID       string // canonical, empty when validation failed
	DisplayName string
	Role        models.PartyRole
}

// Resolver deduplicates party sightings into canonical parties
type Resolver struct{}

// NewResolver creates a resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve folds sightings into one Party per key. Resolution is a pure
// function of its input: identical sightings yield identical mappings.
// The first sighting fixes the display name; a later sighting with a more
// specific role upgrades a party first seen as "other".
func (r *Resolver) Resolve(sightings []Sighting) map[string]*models.Party {
	parties := make(map[string]*models.Party)

	for _, s := range sightings {
		name := strings.TrimSpace(s.DisplayName)
		if s.TaxID == "" && name == "" {
			continue
		}

		key := Key(s.TaxID, name)
		p, ok := parties[key]
		if !ok {
			role := s.Role
			if role == "" {
				role = models.PartyRoleOther
			}
			p = &models.Party{
				CanonicalID:  key,
				DisplayName:  name,
				Role:         role,
				Unidentified: s.TaxID == "",
			}
			parties[key] = p
		}

		if p.DisplayName == "" {
			p.DisplayName = name
		}
		if p.Role == models.PartyRoleOther && s.Role != "" && s.Role != models.PartyRoleOther {
			p.Role = s.Role
		}
		if s.BatchID != "" && !contains(p.Batches, s.BatchID) {
			p.Batches = append(p.Batches, s.BatchID)
		}
	}

	return parties
}

// SightingsFromTransactions derives party sightings from stored
// transactions: one for the owner and one for the counterparty of each.
func SightingsFromTransactions(txns []models.Transaction) []Sighting {
	sightings := make([]Sighting, 0, len(txns)*2)
	for _, t := range txns {
		sightings = append(sightings, Sighting{
			BatchID:     t.BatchID,
			TaxID:       t.OwnerID,
			DisplayName: t.OwnerName,
			Role:        models.PartyRoleHolder,
		})
		if t.CounterpartyID != "" || strings.TrimSpace(t.CounterpartyName) != "" {
			sightings = append(sightings, Sighting{
				BatchID:     t.BatchID,
				TaxID:       t.CounterpartyID,
				DisplayName: t.CounterpartyName,
				Role:        models.PartyRoleOther,
			})
		}
	}
	return sightings
}

// UnifyNames relabels every transaction whose owner or counterparty shows
// one of the variant names under canonicalID to the accepted name, and
// updates the party's display name. The request is validated in full
// before any rename: an unknown canonical id, an unidentified bucket, or
// a variant recorded under a different canonical id rejects the whole
// operation.
func (r *Resolver) UnifyNames(parties map[string]*models.Party, txns []models.Transaction, canonicalID, accepted string, variants []string) (int, error) {
	p, ok := parties[canonicalID]
	if !ok {
		return 0, &ValidationError{Reason: fmt.Sprintf("unknown canonical id %q", canonicalID)}
	}
	if p.Unidentified || IsUnidentified(canonicalID) {
		return 0, &ValidationError{Reason: "cannot unify names of an unidentified party"}
	}
	accepted = strings.TrimSpace(accepted)
	if accepted == "" {
		return 0, &ValidationError{Reason: "accepted display name is empty"}
	}

	variantSet := make(map[string]bool, len(variants))
	for _, v := range variants {
		v = strings.TrimSpace(v)
		if v != "" {
			variantSet[v] = true
		}
	}

	for _, t := range txns {
		if variantSet[t.OwnerName] && t.OwnerID != "" && t.OwnerID != canonicalID {
			return 0, &ValidationError{Reason: fmt.Sprintf("variant %q belongs to a different canonical id %q", t.OwnerName, t.OwnerID)}
		}
		if variantSet[t.CounterpartyName] && t.CounterpartyID != "" && t.CounterpartyID != canonicalID {
			return 0, &ValidationError{Reason: fmt.Sprintf("variant %q belongs to a different canonical id %q", t.CounterpartyName, t.CounterpartyID)}
		}
	}

	renamed := 0
	for i := range txns {
		if txns[i].OwnerID == canonicalID && variantSet[txns[i].OwnerName] {
			txns[i].OwnerName = accepted
			renamed++
		}
		if txns[i].CounterpartyID == canonicalID && variantSet[txns[i].CounterpartyName] {
			txns[i].CounterpartyName = accepted
			renamed++
		}
	}

	p.DisplayName = accepted
	return renamed, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
