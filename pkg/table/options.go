package table

import (
	"pokertable-server/pkg/apperror"
	"pokertable-server/pkg/rake"
)

// Options are the stakes and limits of a table
type Options struct {
	Capacity     int          `yaml:"capacity" json:"capacity"`
	SmallBlind   int64        `yaml:"smallBlind" json:"smallBlind"`
	BigBlind     int64        `yaml:"bigBlind" json:"bigBlind"`
	MinBuyIn     int64        `yaml:"minBuyIn" json:"minBuyIn"`
	MaxBuyIn     int64        `yaml:"maxBuyIn" json:"maxBuyIn"`
	Rake         rake.Options `yaml:"rake" json:"rake"`
	TournamentID string       `yaml:"-" json:"tournamentId,omitempty"`
}

// DefaultOptions returns a 6-max 5/10 table
func DefaultOptions() Options {
	return Options{
		Capacity:   6,
		SmallBlind: 5,
		BigBlind:   10,
		MinBuyIn:   200,
		MaxBuyIn:   2000,
		Rake: rake.Options{
			Percent: 0.05,
			Cap:     40,
		},
	}
}

// Validate checks the options are usable
func (o Options) Validate() error {
	if o.Capacity < 2 || o.Capacity > 9 {
		return apperror.New(apperror.BadRequest, "capacity must be between 2 and 9")
	}

	if o.SmallBlind <= 0 || o.BigBlind < o.SmallBlind {
		return apperror.New(apperror.BadRequest, "blinds must be positive and the big blind must be at least the small blind")
	}

	if o.MinBuyIn < o.BigBlind {
		return apperror.New(apperror.BadRequest, "the minimum buy-in must cover the big blind")
	}

	if o.MaxBuyIn > 0 && o.MaxBuyIn < o.MinBuyIn {
		return apperror.New(apperror.BadRequest, "the maximum buy-in cannot be less than the minimum")
	}

	if o.Rake.Percent < 0 || o.Rake.Percent >= 1 {
		return apperror.New(apperror.BadRequest, "rake percent must be between 0 and 1")
	}

	return nil
}
