package engagement

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/hotelops/staffxp/internal/domain"
)

// Catalog is the immutable rule set the engine is built from.
type Catalog struct {
	XP         map[domain.ActionKind]int64
	Levels     []domain.Level
	Ranks      []domain.Rank
	Badges     []domain.Badge
	Challenges []domain.Challenge
}

// DefaultCatalog returns the built-in rule set.
func DefaultCatalog() Catalog {
	return Catalog{
		XP:         DefaultXPTable(),
		Levels:     DefaultLevels(),
		Ranks:      DefaultRanks(),
		Badges:     DefaultBadges(),
		Challenges: DefaultChallenges(),
	}
}

// catalogFile is the on-disk shape. Omitted sections keep the defaults.
type catalogFile struct {
	XP         map[string]int64   `toml:"xp" yaml:"xp"`
	Levels     []domain.Level     `toml:"levels" yaml:"levels"`
	Ranks      []domain.Rank      `toml:"ranks" yaml:"ranks"`
	Badges     []domain.Badge     `toml:"badges" yaml:"badges"`
	Challenges []domain.Challenge `toml:"challenges" yaml:"challenges"`
}

// LoadCatalog reads a .toml, .yaml or .yml catalog file on top of the
// defaults and validates the result. An empty path returns the defaults.
func LoadCatalog(path string) (Catalog, error) {
	cat := DefaultCatalog()
	if path == "" {
		return cat, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}

	var f catalogFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &f); err != nil {
			return Catalog{}, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidCatalog, path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return Catalog{}, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidCatalog, path, err)
		}
	default:
		return Catalog{}, fmt.Errorf("%w: unsupported catalog format %q", domain.ErrInvalidCatalog, ext)
	}

	for k, v := range f.XP {
		kind, err := ParseActionKind(k)
		if err != nil {
			return Catalog{}, fmt.Errorf("%w: xp table: %v", domain.ErrInvalidCatalog, err)
		}
		cat.XP[kind] = v
	}
	if len(f.Levels) > 0 {
		cat.Levels = f.Levels
	}
	if len(f.Ranks) > 0 {
		cat.Ranks = f.Ranks
	}
	if len(f.Badges) > 0 {
		cat.Badges = f.Badges
	}
	if len(f.Challenges) > 0 {
		cat.Challenges = f.Challenges
	}

	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

// Validate reports every structural problem in the catalog at once.
func (c Catalog) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	for _, k := range domain.ActionKinds() {
		xp, ok := c.XP[k]
		switch {
		case !ok:
			add("xp table: missing %s", k)
		case xp < 0:
			add("xp table: %s is negative", k)
		}
	}

	if len(c.Levels) == 0 {
		add("levels: table is empty")
	} else if c.Levels[0].MinXP != 0 {
		add("levels: first level must start at 0 XP")
	}
	for i, l := range c.Levels {
		if l.Level < 1 {
			add("levels[%d]: level must be >= 1", i)
		}
		if i > 0 && l.MinXP <= c.Levels[i-1].MinXP {
			add("levels[%d]: min_xp must be strictly increasing", i)
		}
		if i > 0 && l.Level <= c.Levels[i-1].Level {
			add("levels[%d]: level numbers must increase", i)
		}
	}

	if len(c.Ranks) == 0 {
		add("ranks: table is empty")
	} else if c.Ranks[0].MinPoints != 0 {
		add("ranks: first rank must start at 0 points")
	}
	for i, r := range c.Ranks {
		if r.Name == "" {
			add("ranks[%d]: name is required", i)
		}
		if i > 0 && r.MinPoints <= c.Ranks[i-1].MinPoints {
			add("ranks[%d]: min_points must be strictly increasing", i)
		}
	}

	seen := make(map[string]bool)
	for i, b := range c.Badges {
		if b.ID == "" {
			add("badges[%d]: id is required", i)
		} else if seen[b.ID] {
			add("badges[%d]: duplicate id %q", i, b.ID)
		}
		seen[b.ID] = true
		if !b.Category.Valid() {
			add("badges[%d]: unknown category %q", i, b.Category)
		}
		if b.Tier < domain.TierBronze || b.Tier > domain.TierGold {
			add("badges[%d]: tier must be 1, 2 or 3", i)
		}
		if err := b.Condition.Validate(); err != nil {
			add("badges[%d]: %v", i, err)
		}
	}

	seen = make(map[string]bool)
	for i, ch := range c.Challenges {
		switch {
		case ch.ID == "":
			add("challenges[%d]: id is required", i)
		case strings.Contains(ch.ID, "@"):
			add("challenges[%d]: id must not contain '@'", i)
		case seen[ch.ID]:
			add("challenges[%d]: duplicate id %q", i, ch.ID)
		}
		seen[ch.ID] = true
		switch _, err := ch.Field.Of(domain.UserStats{}); {
		case err != nil:
			add("challenges[%d]: %v", i, err)
		case ch.Field == domain.FieldTotalXP || ch.Field == domain.FieldBadgesUnlocked:
			// Reward XP moves these, and rewards never complete challenges.
			add("challenges[%d]: field %s cannot be used for challenges", i, ch.Field)
		}
		if ch.Target <= 0 {
			add("challenges[%d]: target must be positive", i)
		}
		if ch.XPReward <= 0 {
			add("challenges[%d]: xp_reward must be positive", i)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidCatalog, errors.Join(errs...))
	}
	return nil
}
