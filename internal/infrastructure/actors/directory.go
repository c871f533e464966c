package actors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/errs"
	"claimflow/internal/ports"
)

// Directory is a static actor table loaded from TOML:
//
//	[[actors]]
//	id = "u-admin"
//	name = "Claims Admin"
//	role = "admin"
type Directory struct {
	actors map[string]domain.Actor
}

var _ ports.ActorProvider = (*Directory)(nil)

type directoryFile struct {
	Actors []actorEntry `toml:"actors"`
}

type actorEntry struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	Role string `toml:"role"`
}

func LoadFile(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrapf(err, "read actors file %q", path)
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, errs.Wrapf(err, "parse actors file %q", path)
	}
	return d, nil
}

func Parse(raw []byte) (*Directory, error) {
	var file directoryFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, errs.Wrap(err, "decode toml")
	}

	actors := make([]domain.Actor, 0, len(file.Actors))
	for i, entry := range file.Actors {
		role, ok := domain.ParseRole(entry.Role)
		if !ok {
			return nil, fmt.Errorf("actors[%d]: unknown role %q", i, entry.Role)
		}
		actors = append(actors, domain.Actor{
			ID:   strings.TrimSpace(entry.ID),
			Name: strings.TrimSpace(entry.Name),
			Role: role,
		})
	}
	return NewDirectory(actors...)
}

func NewDirectory(actors ...domain.Actor) (*Directory, error) {
	d := &Directory{actors: make(map[string]domain.Actor, len(actors))}
	for _, a := range actors {
		if a.ID == "" {
			return nil, errors.New("actor id is required")
		}
		if _, dup := d.actors[a.ID]; dup {
			return nil, fmt.Errorf("duplicate actor id %q", a.ID)
		}
		d.actors[a.ID] = a
	}
	return d, nil
}

func (d *Directory) Actor(ctx context.Context, actorID string) (domain.Actor, error) {
	if ctx == nil {
		return domain.Actor{}, errors.New("context is required")
	}
	a, ok := d.actors[strings.TrimSpace(actorID)]
	if !ok {
		return domain.Actor{}, fmt.Errorf("%w: %q", ports.ErrActorNotFound, actorID)
	}
	return a, nil
}
