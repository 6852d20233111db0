// Package seed loads room inventories from YAML files.
package seed

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"boarding-house-backend/internal/apperr"
	"boarding-house-backend/internal/lifecycle"
	"boarding-house-backend/internal/roomstate"
)

// Room is one entry of a seed file:
//
//	rooms:
//	  - number: A-101
//	    name: Garden view
//	    monthly_price: "3100000"
type Room struct {
	Number       string `yaml:"number"`
	Name         string `yaml:"name"`
	MonthlyPrice string `yaml:"monthly_price"`
}

type File struct {
	Rooms []Room `yaml:"rooms"`
}

// Result counts what Import did.
type Result struct {
	Created int
	Skipped int
}

// Load decodes a seed file.
func Load(r io.Reader) (*File, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	return &f, nil
}

// Import creates every room of f. Rooms whose number already exists are
// skipped; any other rejection stops the import.
func Import(ctx context.Context, svc *lifecycle.Service, f *File, actor roomstate.Actor, log *zap.Logger) (Result, error) {
	var res Result
	for _, r := range f.Rooms {
		price, err := decimal.NewFromString(r.MonthlyPrice)
		if err != nil {
			return res, apperr.Invalid(apperr.InvalidPrice, "room %q: monthly price %q is not a number", r.Number, r.MonthlyPrice)
		}
		_, err = svc.CreateRoom(ctx, lifecycle.CreateRoomRequest{
			Actor:        actor,
			RoomNumber:   r.Number,
			RoomName:     r.Name,
			MonthlyPrice: price,
		})
		switch {
		case err == nil:
			res.Created++
		case apperr.HasCode(err, apperr.DuplicateRoomNumber):
			res.Skipped++
			log.Debug("room already exists", zap.String("room_number", r.Number))
		default:
			return res, fmt.Errorf("room %q: %w", r.Number, err)
		}
	}
	return res, nil
}
