package session

import (
	"log"
	"maps"
	"slices"
	"sync"
	"time"

	"matchplay/internal/game"
)

type commandKind int

const (
	cmdSubmit commandKind = iota
	cmdForfeit
	cmdRoundTimeout
	cmdMatchTimeout
)

// command is one entry in a session's serialized stream. Player actions
// carry a reply channel; timer expiries do not. Round timeouts are tagged
// with the round they were armed for so stale ones can be discarded.
type command struct {
	kind   commandKind
	userID string
	choice game.Choice
	round  int
	reply  chan error
}

// Controller owns one Session. All mutation flows through a single
// goroutine consuming the command channel, so commands for a session are
// linearizable; reads go through the published snapshot and never wait
// behind a pending command.
type Controller struct {
	cfg        Config
	notify     Notifier
	onTerminal func(*Session)

	cmds chan command
	done chan struct{}

	mu       sync.RWMutex
	snapshot *Session

	// owned by the run goroutine
	sess       *Session
	roundTimer *time.Timer
	matchTimer *time.Timer
	changed    []string
}

func newController(sess *Session, cfg Config, notify Notifier, onTerminal func(*Session)) *Controller {
	c := &Controller{
		cfg:        cfg,
		notify:     notify,
		onTerminal: onTerminal,
		cmds:       make(chan command, 16),
		done:       make(chan struct{}),
		sess:       sess,
	}
	c.snapshot = sess.Clone()
	c.matchTimer = time.AfterFunc(cfg.MatchTimeout, func() {
		c.enqueue(command{kind: cmdMatchTimeout})
	})
	c.armRoundTimer(sess.CurrentRound)
	go c.run()
	c.notify.Notify(Event{
		SessionID:      sess.ID,
		ConversationID: sess.ConversationID,
		ChangedFields:  []string{"state", "currentRound", "rounds"},
		Snapshot:       c.snapshot,
	})
	return c
}

// Snapshot returns the latest committed state. The returned value is
// immutable; callers must not modify it.
func (c *Controller) Snapshot() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// SubmitChoice records userID's choice for the current round.
func (c *Controller) SubmitChoice(userID string, choice game.Choice) error {
	return c.exec(command{kind: cmdSubmit, userID: userID, choice: choice})
}

// Forfeit concedes the match on behalf of userID.
func (c *Controller) Forfeit(userID string) error {
	return c.exec(command{kind: cmdForfeit, userID: userID})
}

func (c *Controller) exec(cmd command) error {
	cmd.reply = make(chan error, 1)
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return ErrSessionNotInProgress
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-c.done:
		// the loop may have answered just before shutting down
		select {
		case err := <-cmd.reply:
			return err
		default:
			return ErrSessionNotInProgress
		}
	}
}

// enqueue delivers a timer command without blocking a stopped session.
func (c *Controller) enqueue(cmd command) {
	select {
	case c.cmds <- cmd:
	case <-c.done:
	}
}

// run consumes the command stream until the session reaches a terminal
// state. The match timer guarantees every session terminates, so the
// goroutine always exits.
func (c *Controller) run() {
	for cmd := range c.cmds {
		now := time.Now()
		var err error
		switch cmd.kind {
		case cmdSubmit:
			err = c.handleSubmit(cmd.userID, cmd.choice, now)
		case cmdForfeit:
			err = c.handleForfeit(cmd.userID, now)
		case cmdRoundTimeout:
			c.handleRoundTimeout(cmd.round, now)
		case cmdMatchTimeout:
			c.handleMatchTimeout(now)
		}
		c.commit()
		if cmd.reply != nil {
			cmd.reply <- err
		}
		if c.sess.State.Terminal() {
			c.shutdown()
			return
		}
	}
}

func (c *Controller) shutdown() {
	c.stopRoundTimer()
	c.matchTimer.Stop()
	close(c.done)
	// answer anything that was queued behind the terminal transition
	for {
		select {
		case cmd := <-c.cmds:
			if cmd.reply != nil {
				cmd.reply <- ErrSessionNotInProgress
			}
		default:
			return
		}
	}
}

// commit publishes a fresh snapshot and emits the state-change event for
// whatever the last command touched.
func (c *Controller) commit() {
	if len(c.changed) == 0 {
		return
	}
	fields := slices.Compact(slices.Sorted(slices.Values(c.changed)))
	c.changed = c.changed[:0]

	snap := c.sess.Clone()
	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()

	c.notify.Notify(Event{
		SessionID:      snap.ID,
		ConversationID: snap.ConversationID,
		ChangedFields:  fields,
		Snapshot:       snap,
	})
	if snap.State.Terminal() && c.onTerminal != nil {
		c.onTerminal(snap)
	}
}

func (c *Controller) mark(fields ...string) {
	c.changed = append(c.changed, fields...)
}

func (c *Controller) handleSubmit(userID string, choice game.Choice, now time.Time) error {
	s := c.sess
	num := s.playerNum(userID)
	if num == 0 {
		return ErrNotAParticipant
	}
	if s.State != StateInProgress {
		return ErrSessionNotInProgress
	}
	if !c.cfg.Rules.Valid(choice) {
		return ErrInvalidChoice
	}
	r := s.round()
	if r.choiceOf(num) != "" {
		return ErrChoiceAlreadySubmitted
	}

	r.setChoice(num, choice)
	s.LastActivityAt = now
	c.mark("rounds", "lastActivityAt")

	if r.submissions() == 2 {
		c.stopRoundTimer()
		r.Winner = c.cfg.Rules.Resolve(r.Player1Choice, r.Player2Choice)
		r.ResolvedAt = now
		s.idleRounds = 0
		c.applyOutcome(r)
		c.afterResolve(now)
	}
	return nil
}

func (c *Controller) handleForfeit(userID string, now time.Time) error {
	s := c.sess
	num := s.playerNum(userID)
	if num == 0 {
		return ErrNotAParticipant
	}
	if s.State != StateInProgress {
		return ErrSessionNotInProgress
	}
	s.LastActivityAt = now
	c.mark("lastActivityAt")
	c.complete(StateForfeited, s.playerID(3-num), now)
	return nil
}

// handleRoundTimeout force-resolves the round the timer was armed for.
// A timeout for any other round, or for a round that already resolved by
// submission, is stale and dropped.
func (c *Controller) handleRoundTimeout(round int, now time.Time) {
	s := c.sess
	if s.State != StateInProgress || round != s.CurrentRound {
		return
	}
	r := s.round()
	if r.Resolved() {
		return
	}

	r.TimedOut = true
	r.ResolvedAt = now
	c.mark("rounds")

	switch r.submissions() {
	case 0:
		r.Winner = game.OutcomeDraw
		s.idleRounds++
		if s.idleRounds >= 2 {
			log.Printf("session %s: abandoned after %d idle rounds", s.ID, s.idleRounds)
			c.complete(StateAbandoned, "", now)
			return
		}
	case 1:
		s.idleRounds = 0
		if c.cfg.TimeoutPolicy == PolicyDraw {
			r.Winner = game.OutcomeDraw
		} else if r.Player1Choice != "" {
			r.Winner = game.OutcomePlayer1
		} else {
			r.Winner = game.OutcomePlayer2
		}
		c.applyOutcome(r)
	}
	c.afterResolve(now)
}

func (c *Controller) handleMatchTimeout(now time.Time) {
	s := c.sess
	if s.State != StateInProgress {
		return
	}
	log.Printf("session %s: match clock expired", s.ID)
	c.complete(StateAbandoned, "", now)
}

func (c *Controller) applyOutcome(r *Round) {
	s := c.sess
	switch r.Winner {
	case game.OutcomePlayer1:
		s.Score[s.InitiatorID]++
		c.mark("score")
	case game.OutcomePlayer2:
		s.Score[s.ParticipantID]++
		c.mark("score")
	}
}

// afterResolve runs the completion check on a freshly resolved round:
// majority first, then the even-bestOf draw case, otherwise the next
// round opens with a fresh timer.
func (c *Controller) afterResolve(now time.Time) {
	s := c.sess
	r := s.round()
	if !r.Resolved() || !maps.Equal(s.Score, s.RecomputeScore()) {
		// should never happen; never continue in an inconsistent state
		log.Printf("session %s: invariant violation at round %d, abandoning", s.ID, s.CurrentRound)
		c.complete(StateAbandoned, "", now)
		return
	}

	threshold := s.threshold()
	for _, id := range []string{s.InitiatorID, s.ParticipantID} {
		if s.Score[id] >= threshold {
			c.complete(StateCompleted, id, now)
			return
		}
	}
	if s.decidedRounds() >= s.BestOf {
		// tied with the best-of budget spent; only reachable with an
		// even bestOf
		c.complete(StateCompleted, "", now)
		return
	}

	s.openRound(now, c.cfg.RoundTimeout)
	c.armRoundTimer(s.CurrentRound)
	c.mark("currentRound", "rounds", "roundDeadline")
}

// complete performs the single terminal transition of the session.
func (c *Controller) complete(state State, winnerID string, now time.Time) {
	s := c.sess
	c.stopRoundTimer()
	c.matchTimer.Stop()
	s.State = state
	s.WinnerID = winnerID
	s.CompletedAt = now
	s.RoundDeadline = time.Time{}
	s.MatchDeadline = time.Time{}
	c.mark("state", "winnerId", "completedAt")
}

func (c *Controller) armRoundTimer(round int) {
	c.roundTimer = time.AfterFunc(c.cfg.RoundTimeout, func() {
		c.enqueue(command{kind: cmdRoundTimeout, round: round})
	})
}

func (c *Controller) stopRoundTimer() {
	if c.roundTimer != nil {
		c.roundTimer.Stop()
	}
}
