// Package parser decodes recordings into raw records: CS2 demo files through
// demoinfocs, and JSON-lines record dumps.
package parser

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	demoinfocs "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs"
	common "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/common"
	"github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/events"

	"github.com/pable/cs-round-features/internal/model"
)

// DefaultSampleInterval is how often players are sampled during a round.
const DefaultSampleInterval = 250 * time.Millisecond

// ParseDemo decodes the demo at path. The match id is the SHA-256 of the
// file, so re-parsing the same demo yields the same id. Players are sampled
// every sample interval, at freeze time end and at round end.
func ParseDemo(ctx context.Context, path string, sample time.Duration) (*model.RawMatch, error) {
	if sample <= 0 {
		sample = DefaultSampleInterval
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open demo: %w", err)
	}
	defer f.Close()

	id, err := hashFile(f)
	if err != nil {
		return nil, fmt.Errorf("hash demo: %w", err)
	}

	p := demoinfocs.NewParser(f)
	defer p.Close()

	rec := newRecorder(sample)
	tick := func() int { return p.GameState().IngameTick() }
	playing := func() []playerState {
		var out []playerState
		for _, pl := range p.GameState().Participants().Playing() {
			if st, ok := stateOf(p.GameState(), pl); ok {
				out = append(out, st)
			}
		}
		return out
	}

	p.RegisterEventHandler(func(events.MatchStart) {
		rec.matchStart()
	})

	p.RegisterEventHandler(func(events.RoundStart) {
		if p.GameState().IsWarmupPeriod() {
			return
		}
		rec.roundStart(tick(), p.CurrentTime())
	})

	p.RegisterEventHandler(func(events.RoundFreezetimeEnd) {
		if p.GameState().IsWarmupPeriod() {
			return
		}
		now := p.CurrentTime()
		rec.freezeEnd(tick(), now)
		rec.players(tick(), now, playing())
	})

	p.RegisterEventHandler(func(e events.RoundEnd) {
		if p.GameState().IsWarmupPeriod() {
			return
		}
		now := p.CurrentTime()
		rec.players(tick(), now, playing())
		rec.roundEnd(tick(), now, sideFromCommon(e.Winner))
	})

	p.RegisterEventHandler(func(events.FrameDone) {
		if ctx.Err() != nil {
			p.Cancel()
			return
		}
		now := p.CurrentTime()
		if rec.due(now) {
			rec.players(tick(), now, playing())
		}
	})

	p.RegisterEventHandler(func(e events.GrenadeProjectileThrow) {
		g := e.Projectile
		if g == nil || g.Thrower == nil || g.WeaponInstance == nil {
			return
		}
		rec.grenade(tick(), p.CurrentTime(), playerID(g.Thrower), sideFromCommon(g.Thrower.Team), g.WeaponInstance.Type.String())
	})

	if err := p.ParseToEnd(); err != nil {
		if errors.Is(err, demoinfocs.ErrCancelled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("parse demo: %w", err)
	}

	return &model.RawMatch{
		MatchID:  id,
		MapName:  p.Header().MapName,
		Source:   path,
		TickRate: p.TickRate(),
		Records:  rec.records,
	}, nil
}

// hashFile returns the hex SHA-256 of f and rewinds it.
func hashFile(f io.ReadSeeker) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func stateOf(gs demoinfocs.GameState, pl *common.Player) (playerState, bool) {
	if pl == nil {
		return playerState{}, false
	}
	side := sideFromCommon(pl.Team)
	if side == model.SideUnknown {
		return playerState{}, false
	}
	st := playerState{
		ID:        playerID(pl),
		Side:      side,
		Money:     pl.Money(),
		Equipment: pl.EquipmentValueCurrent(),
		Armor:     pl.Armor(),
		Helmet:    pl.HasHelmet(),
		Defuser:   pl.HasDefuseKit(),
		Health:    pl.Health(),
		Alive:     pl.IsAlive(),
	}
	if ts := gs.Team(pl.Team); ts != nil {
		st.Team = ts.ClanName()
	}
	for _, w := range pl.Weapons() {
		if w != nil {
			st.Inventory = append(st.Inventory, w.Type.String())
		}
	}
	return st, true
}

// playerID is the SteamID64, or the name for bots.
func playerID(pl *common.Player) string {
	if pl.SteamID64 != 0 {
		return strconv.FormatUint(pl.SteamID64, 10)
	}
	return pl.Name
}

func sideFromCommon(t common.Team) model.Side {
	switch t {
	case common.TeamTerrorists:
		return model.SideT
	case common.TeamCounterTerrorists:
		return model.SideCT
	default:
		return model.SideUnknown
	}
}
