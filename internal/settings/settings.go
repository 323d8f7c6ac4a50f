// Feature flags and term lists, persisted in the synchronized storage area
// under the same keys the settings panel writes.

package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go-jobcard-manager/internal/storage"
)

const (
	KeyHiding         = "linkedinHiderEnabled"
	KeyAutoDismiss    = "linkedinAutoDismissEnabled"
	KeyKeywordDismiss = "linkedinDismissingEnabled"
	KeyCompanyBlock   = "linkedinCompanyBlockingEnabled"
	KeyKeywords       = "dismissKeywords"
	KeyCompanies      = "blockedCompanies"
)

type Settings struct {
	Hiding              bool     `json:"hiding"`
	AutoDismissFromList bool     `json:"autoDismissFromList"`
	KeywordDismiss      bool     `json:"keywordDismiss"`
	CompanyBlock        bool     `json:"companyBlock"`
	Keywords            []string `json:"keywords"`
	BlockedCompanies    []string `json:"blockedCompanies"`
}

// Defaults: hiding on, every dismissal policy off.
func Defaults() Settings {
	return Settings{Hiding: true}
}

type Repository struct {
	area storage.Area
}

func NewRepository(area storage.Area) *Repository {
	return &Repository{area: area}
}

// Load reads every key; missing keys keep their default.
func (r *Repository) Load(ctx context.Context) (Settings, error) {
	s := Defaults()
	items, err := r.area.Get(ctx, KeyHiding, KeyAutoDismiss, KeyKeywordDismiss, KeyCompanyBlock, KeyKeywords, KeyCompanies)
	if err != nil {
		return s, fmt.Errorf("load settings: %w", err)
	}
	flags := map[string]*bool{
		KeyHiding:         &s.Hiding,
		KeyAutoDismiss:    &s.AutoDismissFromList,
		KeyKeywordDismiss: &s.KeywordDismiss,
		KeyCompanyBlock:   &s.CompanyBlock,
	}
	for key, dst := range flags {
		if raw, ok := items[key]; ok {
			if err := json.Unmarshal(raw, dst); err != nil {
				return s, fmt.Errorf("decode %s: %w", key, err)
			}
		}
	}
	lists := map[string]*[]string{
		KeyKeywords:  &s.Keywords,
		KeyCompanies: &s.BlockedCompanies,
	}
	for key, dst := range lists {
		if raw, ok := items[key]; ok {
			if err := json.Unmarshal(raw, dst); err != nil {
				return s, fmt.Errorf("decode %s: %w", key, err)
			}
		}
	}
	return s, nil
}

// Seed writes s only for keys not yet present, like the install-time defaults.
func (r *Repository) Seed(ctx context.Context, s Settings) error {
	all, err := r.area.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	values := map[string]any{
		KeyHiding:         s.Hiding,
		KeyAutoDismiss:    s.AutoDismissFromList,
		KeyKeywordDismiss: s.KeywordDismiss,
		KeyCompanyBlock:   s.CompanyBlock,
		KeyKeywords:       NormalizeList(s.Keywords),
		KeyCompanies:      NormalizeList(s.BlockedCompanies),
	}
	writes := make(map[string]json.RawMessage)
	for key, v := range values {
		if _, ok := all[key]; ok {
			continue
		}
		data, err := storage.Encode(v)
		if err != nil {
			return err
		}
		writes[key] = data
	}
	if len(writes) == 0 {
		return nil
	}
	return r.area.Set(ctx, writes)
}

func (r *Repository) SetFlag(ctx context.Context, key string, enabled bool) error {
	if err := storage.SetValue(ctx, r.area, key, enabled); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetList normalises terms and stores them; the stored list is returned.
func (r *Repository) SetList(ctx context.Context, key string, terms []string) ([]string, error) {
	list := NormalizeList(terms)
	if err := storage.SetValue(ctx, r.area, key, list); err != nil {
		return list, fmt.Errorf("save %s: %w", key, err)
	}
	return list, nil
}

// NormalizeTerm trims and lowercases a keyword or company name.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// NormalizeList normalises, dedupes and sorts terms, dropping empty ones.
func NormalizeList(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = NormalizeTerm(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// AddTerm returns list with term added, keeping it sorted.
func AddTerm(list []string, term string) ([]string, error) {
	term = NormalizeTerm(term)
	if term == "" {
		return list, fmt.Errorf("term is empty")
	}
	for _, t := range list {
		if t == term {
			return list, fmt.Errorf("%q already exists", term)
		}
	}
	return NormalizeList(append(append([]string(nil), list...), term)), nil
}

// RemoveTerm returns list without term.
func RemoveTerm(list []string, term string) []string {
	term = NormalizeTerm(term)
	out := make([]string, 0, len(list))
	for _, t := range list {
		if t != term {
			out = append(out, t)
		}
	}
	return out
}

// Export renders a list one term per line.
func Export(list []string) string {
	return strings.Join(list, "\n")
}
