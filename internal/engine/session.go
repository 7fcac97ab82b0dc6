package engine

import (
	"fmt"

	"github.com/MJE43/nh-parity-go/internal/world"
)

// Phase is the session's position in the turn state machine.
type Phase uint8

const (
	AwaitingCommand Phase = iota
	ResolvingAction
	MultiTurnAction
	TurnComplete
	SessionEnded
)

func (p Phase) String() string {
	switch p {
	case AwaitingCommand:
		return "awaiting_command"
	case ResolvingAction:
		return "resolving_action"
	case MultiTurnAction:
		return "multi_turn_action"
	case TurnComplete:
		return "turn_complete"
	case SessionEnded:
		return "session_ended"
	}
	return fmt.Sprintf("phase(%d)", p)
}

// Outcome describes the turn a Submit resolved.
type Outcome struct {
	Command  Command
	Turn     uint64
	Phase    Phase
	Progress int
	Draws    uint64
	Messages []string
}

// Session threads one GameState through the turn state machine. It is not
// safe for concurrent use; a convergence sweep gives every fixture its own.
type Session struct {
	State *GameState

	phase    Phase
	occ      *occupation
	lastDig  digMemory
	maxTurns uint64
}

// New builds a game and wraps it in a session.
func New(seed uint64, opts Options) (*Session, error) {
	gs, err := NewGame(seed, opts)
	if err != nil {
		return nil, err
	}
	return NewSession(gs, opts.MaxTurns), nil
}

// NewSession wraps an existing state. maxTurns of zero means no limit.
func NewSession(gs *GameState, maxTurns uint64) *Session {
	s := &Session{State: gs, maxTurns: maxTurns}
	if gs.Player.Dead {
		s.phase = SessionEnded
	}
	return s
}

// Phase reports the current state machine phase.
func (s *Session) Phase() Phase { return s.phase }

// Progress reports the remaining work of the current multi-turn action, or
// zero when none is in progress.
func (s *Session) Progress() int {
	if s.occ == nil {
		return 0
	}
	return s.occ.remaining()
}

// Occupation names the multi-turn action in progress, if any.
func (s *Session) Occupation() (Command, bool) {
	if s.occ == nil {
		return Command{}, false
	}
	return s.occ.cmd, true
}

// Submit resolves one turn for cmd. Infeasible commands return an error
// wrapping ErrIllegalCommand and leave the state untouched.
func (s *Session) Submit(cmd Command) (Outcome, error) {
	gs := s.State
	if s.phase == SessionEnded {
		return s.outcome(cmd, 0), ErrSessionEnded
	}
	if err := cmd.Validate(); err != nil {
		return s.outcome(cmd, 0), err
	}

	if cmd.Kind == CmdQuit {
		s.interrupt()
		s.phase = SessionEnded
		gs.Messages = []string{"Quit."}
		return s.outcome(cmd, 0), nil
	}

	// A different command ends the occupation, but only once it is known
	// to be legal. Rejected commands leave the session untouched.
	prev := s.occ
	if prev != nil && !prev.continues(cmd) {
		s.occ = nil
	}
	act, err := s.plan(cmd)
	if err != nil {
		s.occ = prev
		return s.outcome(cmd, 0), err
	}

	before := gs.RNG.Calls()
	s.phase = ResolvingAction
	s.resolveTurn(act)
	return s.outcome(cmd, gs.RNG.Calls()-before), nil
}

// Resume continues the current multi-turn action for one more turn.
func (s *Session) Resume() (Outcome, error) {
	if s.occ == nil {
		return s.outcome(Command{}, 0), illegal("nothing to resume")
	}
	return s.Submit(s.occ.cmd)
}

func (s *Session) interrupt() {
	if s.occ == nil {
		return
	}
	s.occ = nil
	if s.phase == MultiTurnAction {
		s.phase = AwaitingCommand
	}
}

func (s *Session) outcome(cmd Command, draws uint64) Outcome {
	return Outcome{
		Command:  cmd,
		Turn:     s.State.Turn,
		Phase:    s.phase,
		Progress: s.Progress(),
		Draws:    draws,
		Messages: append([]string(nil), s.State.Messages...),
	}
}

// action performs the player's part of a turn and reports whether the
// player changed squares.
type action func() (moved bool)

// plan validates cmd against the state and returns the action to run. It
// must not draw from the generator.
func (s *Session) plan(cmd Command) (action, error) {
	switch cmd.Kind {
	case CmdMove:
		return s.planMove(cmd.Dir)
	case CmdDig:
		return s.planDig(cmd.Dir)
	case CmdSearch:
		return s.search, nil
	case CmdPickUp:
		return s.planPickUp()
	case CmdDrop:
		return s.planDrop(cmd.Letter)
	case CmdRest:
		return func() bool { return false }, nil
	case CmdQuit:
		return nil, illegal("quit is not a turn action")
	}
	return nil, illegal(fmt.Sprintf("unknown command %s", cmd))
}

// resolveTurn runs one full turn in the fixed order: player action, trap at
// the player's square, monsters by ascending ID, then the status ticks.
func (s *Session) resolveTurn(act action) {
	gs := s.State
	gs.Messages = nil

	if act() {
		s.springTrap()
	}
	if !gs.Player.Dead {
		s.moveMonsters()
	}
	if !gs.Player.Dead {
		s.tickStatus()
	}
	gs.Turn++

	s.phase = TurnComplete
	switch {
	case gs.Player.Dead:
		s.occ = nil
		s.phase = SessionEnded
	case s.maxTurns > 0 && gs.Turn >= s.maxTurns:
		s.occ = nil
		s.phase = SessionEnded
	case s.occ != nil:
		s.phase = MultiTurnAction
	default:
		s.phase = AwaitingCommand
	}
}

// tickStatus applies regeneration and hunger. Neither draws random numbers.
func (s *Session) tickStatus() {
	gs := s.State
	p := gs.Player
	now := gs.Turn + 1

	if p.HP < p.HPMax && p.XL < 10 {
		if now%uint64(42/(p.XL+2)+1) == 0 {
			p.HP++
		}
	}
	if now%20 == 0 {
		for _, m := range gs.Dungeon.Monsters() {
			if m.HP < m.HPMax {
				m.HP++
			}
			if m.Tactic == world.TacticFlee && m.HP == m.HPMax {
				m.Tactic = m.Species.Info().Tactic
			}
		}
	}

	before := p.Hunger()
	p.Nutrition--
	after := p.Hunger()
	if after != before {
		switch after {
		case world.Hungry:
			gs.say("You are beginning to feel hungry.")
		case world.Weak:
			gs.say("You are beginning to feel weak.")
		case world.Fainting:
			gs.say("You faint from lack of food.")
		case world.Starved:
			gs.say("You die from starvation.")
			p.Die("starvation")
		case world.Satiated, world.NotHungry:
		}
	}
}
