package phase

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/battlefield"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/geometry"
	"github.com/cory-johannsen/skirmish/internal/game/scoring"
	"github.com/cory-johannsen/skirmish/internal/game/unit"
)

var (
	twoD6 = dice.MustParse("2D6")
	oneD6 = dice.MustParse("D6")
)

// Config wires a Controller to one battle's collaborators.
type Config struct {
	Battlefield *battlefield.Battlefield
	Geometry    *geometry.Service
	Strategy    *ai.Strategy
	Scorer      *scoring.Scorer
	// Units holds both armies in roster order.
	Units    []*unit.Unit
	Roller   *dice.Roller
	Policy   combat.Policy
	MaxTurns int
	Log      *event.Log
	Logger   *zap.Logger
}

// Controller owns the battle state and executes phases in order.
type Controller struct {
	cfg   Config
	state State
}

// New returns a Controller positioned at turn 1, player A, Command phase.
//
// Precondition: every Config field except Logger is set; MaxTurns >= 1.
func New(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	controllers := make([]battlefield.PlayerID, len(cfg.Battlefield.Objectives))
	for i := range controllers {
		controllers[i] = battlefield.NoPlayer
	}
	c := &Controller{
		cfg: cfg,
		state: State{
			Turn:        1,
			Phase:       Command,
			Active:      battlefield.PlayerA,
			Controllers: controllers,
			Tabled:      battlefield.NoPlayer,
		},
	}
	c.refreshEngagement()
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	s := c.state
	s.Controllers = append([]battlefield.PlayerID(nil), c.state.Controllers...)
	return s
}

// Over reports whether the battle has ended.
func (c *Controller) Over() bool { return c.state.Over }

// Run steps the battle until it ends.
func (c *Controller) Run() {
	for !c.state.Over {
		c.Step()
	}
}

// Step executes the current phase, checks for the end of the battle and
// advances to the next phase.
func (c *Controller) Step() {
	c.Execute(c.state.Phase)
}

// Execute runs phase p for the active player. Executing any phase other than
// the current one, or stepping a finished battle, is an invariant violation.
func (c *Controller) Execute(p Phase) {
	if c.state.Over {
		c.violation("step after the battle ended")
	}
	if p != c.state.Phase {
		c.violation(fmt.Sprintf("phase %s executed out of order", p))
	}

	switch p {
	case Command:
		c.command()
	case Movement:
		c.movement()
	case Shooting:
		c.shooting()
	case Charge:
		c.charge()
	case Fight:
		c.fight()
	}

	c.checkInvariants()
	if c.checkTabled() {
		return
	}
	c.advance()
}

func (c *Controller) advance() {
	s := &c.state
	switch {
	case s.Phase < Fight:
		s.Phase++
	case s.Active == battlefield.PlayerA:
		s.Active, s.Phase = battlefield.PlayerB, Command
	case s.Turn >= c.cfg.MaxTurns:
		s.Over = true
	default:
		s.Turn++
		s.Active, s.Phase = battlefield.PlayerA, Command
		s.TurnVP = [2]int{}
	}
}

func (c *Controller) checkTabled() bool {
	for _, p := range battlefield.Players {
		if len(c.living(p)) == 0 {
			c.state.Over = true
			c.state.Tabled = p
			c.cfg.Logger.Debug("side tabled", zap.Stringer("player", p), zap.Int("turn", c.state.Turn))
			return true
		}
	}
	return false
}

func (c *Controller) violation(msg string) {
	panic(&InvariantError{Turn: c.state.Turn, Phase: c.state.Phase, Msg: msg})
}

func (c *Controller) checkInvariants() {
	for _, u := range c.cfg.Units {
		if err := u.CheckInvariants(c.cfg.Battlefield); err != nil {
			c.violation(err.Error())
		}
	}
}

// living returns the surviving units of player in roster order.
func (c *Controller) living(player battlefield.PlayerID) []*unit.Unit {
	var out []*unit.Unit
	for _, u := range c.cfg.Units {
		if u.Player == player && !u.IsDestroyed() {
			out = append(out, u)
		}
	}
	return out
}

func (c *Controller) view() *ai.View {
	objs := make([]ai.ObjectiveState, len(c.cfg.Battlefield.Objectives))
	for i, o := range c.cfg.Battlefield.Objectives {
		objs[i] = ai.ObjectiveState{Objective: o, Controller: c.state.Controllers[i]}
	}
	return &ai.View{Units: c.cfg.Units, Objectives: objs, ControlRadius: c.cfg.Scorer.Radius()}
}

// refreshEngagement recomputes every unit's Engaged flag from positions.
func (c *Controller) refreshEngagement() {
	for _, u := range c.cfg.Units {
		u.Status.Engaged = false
		if u.IsDestroyed() {
			continue
		}
		for _, e := range c.cfg.Units {
			if e.Player != u.Player && !e.IsDestroyed() && c.cfg.Geometry.Engaged(u.Position, e.Position) {
				u.Status.Engaged = true
				break
			}
		}
	}
}

// moveUnit relocates u. A path through Impassable terrain or off the table
// is a defect in the strategy engine.
func (c *Controller) moveUnit(u *unit.Unit, to battlefield.Point) {
	if !c.cfg.Geometry.PathClear(u.Position, to) {
		c.violation(fmt.Sprintf("unit %q moved through impassable terrain from %s to %s", u.ID, u.Position, to))
	}
	u.Position = to
}

func (c *Controller) emit(cat event.Category, desc string, deltas event.Deltas, actors ...string) {
	c.emitFor(c.state.Active, cat, desc, deltas, actors...)
}

// emitFor records an event attributed to player rather than the active player.
func (c *Controller) emitFor(player battlefield.PlayerID, cat event.Category, desc string, deltas event.Deltas, actors ...string) {
	e := c.cfg.Log.Append(event.Event{
		Turn:        c.state.Turn,
		Phase:       c.state.Phase.String(),
		Player:      player,
		Category:    cat,
		Actors:      actors,
		Description: desc,
		Deltas:      deltas,
	})
	c.cfg.Logger.Debug("battle event", zap.Int("seq", e.Seq), zap.Stringer("event", e))
}
