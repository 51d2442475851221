// internal/game/resolution.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultRevealDelay is how long a completed pair stays visible before it
// is judged.
const DefaultRevealDelay = time.Second

// Scheduler runs f once after d. The room never cancels a scheduled task;
// a task whose round has passed does nothing when it fires.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(d time.Duration, f func())

func (fn SchedulerFunc) AfterFunc(d time.Duration, f func()) { fn(d, f) }

// TimerScheduler schedules on the runtime timer.
var TimerScheduler Scheduler = SchedulerFunc(func(d time.Duration, f func()) {
	time.AfterFunc(d, f)
})

// resolution is the key of a scheduled pair judgement: the round it was
// scheduled in and the two card ids flipped.
type resolution struct {
	round  uint64
	first  int
	second int
}

// scheduleResolutionUnsafe arranges for the pending pair to be judged after
// the reveal delay.
// Assumes lock is held by caller.
func (g *Room) scheduleResolutionUnsafe(first, second int) {
	res := resolution{round: g.round, first: first, second: second}
	g.scheduler.AfterFunc(g.revealDelay, func() {
		g.resolve(res)
	})
}

// resolve judges a pair captured by scheduleResolutionUnsafe. It does nothing
// if the room was emptied, restarted or otherwise moved on in the meantime.
func (g *Room) resolve(res resolution) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.closed || g.round != res.round || g.status != StatusPlaying || !g.board.PendingIs(res.first, res.second) {
		g.log.WithFields(logrus.Fields{"round": res.round, "first": res.first, "second": res.second}).
			Debug("stale resolution ignored")
		return
	}

	holder := g.seatByConnUnsafe(g.currentTurnUnsafe())
	matched := g.board.Resolve(res.first, res.second)

	if matched {
		if holder != nil {
			holder.Score++
		}
		g.logAction(g.currentTurnUnsafe(), "pair_matched", map[string]interface{}{"cards": []int{res.first, res.second}})
		if g.board.AllMatched() {
			g.finishUnsafe()
		}
	} else {
		g.logAction(g.currentTurnUnsafe(), "pair_missed", map[string]interface{}{"cards": []int{res.first, res.second}})
		g.advanceTurnUnsafe()
	}

	g.broadcastStateUnsafe()
}

// finishUnsafe ends the game and reports the result.
// Assumes lock is held by caller.
func (g *Room) finishUnsafe() {
	g.status = StatusFinished
	result := g.decideWinnerUnsafe()

	scores := make([]int, len(result.Seats))
	for i, s := range result.Seats {
		scores[i] = s.Score
	}
	fields := logrus.Fields{"round": g.round, "scores": scores}
	if result.Tie {
		g.log.WithFields(fields).Info("game finished in a tie")
	} else {
		g.log.WithFields(fields).WithField("winner", result.WinnerID).Info("game finished")
	}
	g.logAction(uuid.Nil, "game_finished", map[string]interface{}{"tie": result.Tie, "winner": result.WinnerID.String()})

	if g.OnGameEnd != nil {
		g.OnGameEnd(result)
	}
}
