// Package gateway is a line-oriented stdio adapter: the local stand-in for a
// chat platform connector. Each input line is "<user>: <text>"; payloads
// starting with "/" are commands, everything else is scanned for time
// expressions with every user seen so far as the audience.
package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Canary-Prism/TimeBot/internal/bot"
	"github.com/Canary-Prism/TimeBot/internal/domain"
)

type Gateway struct {
	log    *zap.Logger
	engine *bot.Engine

	in  io.Reader
	out io.Writer

	mu    sync.Mutex
	users map[string]bool
}

func New(log *zap.Logger, engine *bot.Engine, in io.Reader, out io.Writer) *Gateway {
	return &Gateway{
		log:    log,
		engine: engine,
		in:     in,
		out:    out,
		users:  make(map[string]bool),
	}
}

// SendMessage implements scheduler.Sender by printing an addressed line.
func (g *Gateway) SendMessage(userID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, err := fmt.Fprintf(g.out, "@%s %s\n", userID, text)
	return err
}

// Run consumes input lines until EOF or context cancellation.
func (g *Gateway) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(g.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		userID, payload, ok := strings.Cut(line, ":")
		if !ok {
			g.reply("", "expected \"<user>: <message>\"")
			continue
		}
		userID = strings.TrimSpace(userID)
		payload = strings.TrimSpace(payload)
		if userID == "" || payload == "" {
			continue
		}
		g.track(userID)

		if strings.HasPrefix(payload, "/") {
			g.handleCommand(ctx, userID, payload)
			continue
		}

		reply := g.engine.HandleMessage(ctx, userID, payload, g.participants(), time.Now())
		if reply != "" {
			g.reply("", reply)
		}
	}
	return scanner.Err()
}

func (g *Gateway) track(userID string) {
	g.mu.Lock()
	g.users[userID] = true
	g.mu.Unlock()
}

// participants returns every user seen so far, in stable order.
func (g *Gateway) participants() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.users))
	for id := range g.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *Gateway) reply(userID, text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if userID != "" {
		fmt.Fprintf(g.out, "@%s %s\n", userID, text)
		return
	}
	fmt.Fprintln(g.out, text)
}

func (g *Gateway) handleCommand(ctx context.Context, userID, payload string) {
	fields := strings.Fields(payload)
	cmd := strings.TrimPrefix(fields[0], "/")
	args := fields[1:]

	switch cmd {
	case "timezone":
		g.cmdTimezone(ctx, userID, args)
	case "format":
		g.cmdFormat(ctx, userID, strings.TrimSpace(strings.TrimPrefix(payload, "/format")))
	case "time":
		g.cmdTime(userID, args)
	case "timer":
		g.cmdTimer(ctx, userID, args)
	case "alarm":
		g.cmdAlarm(ctx, userID, args)
	default:
		g.reply(userID, fmt.Sprintf("unknown command %q", "/"+cmd))
	}
}

func (g *Gateway) cmdTimezone(ctx context.Context, userID string, args []string) {
	if len(args) == 0 {
		g.reply(userID, "usage: /timezone set <zone> | get [user] | remove | show | hide")
		return
	}

	switch args[0] {
	case "set":
		if len(args) < 2 {
			g.reply(userID, "usage: /timezone set <zone>")
			return
		}
		if err := g.engine.SetUserTimezone(ctx, userID, args[1]); err != nil {
			g.reply(userID, err.Error())
			return
		}
		tz, _ := g.engine.GetUserTimezone(userID)
		g.reply(userID, fmt.Sprintf("timezone set to %s", tz))
	case "get":
		subject := userID
		if len(args) > 1 {
			subject = args[1]
		}
		tz, err := g.engine.GetUserTimezone(subject)
		if err != nil {
			g.reply(userID, fmt.Sprintf("%s has no timezone configured", subject))
			return
		}
		g.reply(userID, fmt.Sprintf("%s is in %s", subject, tz))
	case "remove":
		if err := g.engine.RemoveUserTimezone(ctx, userID); err != nil {
			g.reply(userID, err.Error())
			return
		}
		g.reply(userID, "timezone removed")
	case "show", "hide":
		if err := g.engine.SetTimezoneVisible(ctx, userID, args[0] == "show"); err != nil {
			g.reply(userID, err.Error())
			return
		}
		g.reply(userID, fmt.Sprintf("timezone visibility: %s", args[0]))
	default:
		g.reply(userID, fmt.Sprintf("unknown /timezone action %q", args[0]))
	}
}

func (g *Gateway) cmdFormat(ctx context.Context, userID, layout string) {
	if layout == "reset" {
		layout = ""
	}
	if err := g.engine.SetUserFormat(ctx, userID, layout); err != nil {
		g.reply(userID, err.Error())
		return
	}
	if layout == "" {
		g.reply(userID, "time format reset to default")
		return
	}
	g.reply(userID, fmt.Sprintf("time format set to %q", layout))
}

func (g *Gateway) cmdTime(userID string, args []string) {
	subject := userID
	if len(args) > 0 {
		subject = args[0]
	}
	text, err := g.engine.CurrentTimeFor(subject, time.Now())
	if err != nil {
		g.reply(userID, fmt.Sprintf("%s has no timezone configured", subject))
		return
	}
	g.reply(userID, text)
}

func (g *Gateway) cmdTimer(ctx context.Context, userID string, args []string) {
	if len(args) == 0 {
		g.reply(userID, "usage: /timer <duration> [message] | list | cancel <n>")
		return
	}

	switch args[0] {
	case "list":
		timers, err := g.engine.ListTimers(ctx, userID)
		if err != nil {
			g.reply(userID, err.Error())
			return
		}
		if len(timers) == 0 {
			g.reply(userID, "no timers")
			return
		}
		var b strings.Builder
		b.WriteString("timers:")
		for i, t := range timers {
			fmt.Fprintf(&b, "\n  %d. %s remaining", i+1, formatRemaining(t.DueAt))
			if t.Message != "" {
				fmt.Fprintf(&b, " (%s)", t.Message)
			}
		}
		g.reply(userID, b.String())
	case "cancel":
		if len(args) < 2 {
			g.reply(userID, "usage: /timer cancel <n>")
			return
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			g.reply(userID, "timer number must be a number")
			return
		}
		t, err := g.engine.CancelTimer(ctx, userID, n)
		if err != nil {
			g.reply(userID, err.Error())
			return
		}
		g.reply(userID, fmt.Sprintf("cancelled timer for %s", t.Duration))
	default:
		message := strings.Join(args[1:], " ")
		t, err := g.engine.StartTimer(ctx, userID, args[0], message, time.Now())
		if err != nil {
			g.reply(userID, err.Error())
			return
		}
		g.reply(userID, fmt.Sprintf("timer set for %s", t.Duration))
	}
}

func (g *Gateway) cmdAlarm(ctx context.Context, userID string, args []string) {
	if len(args) == 0 {
		g.reply(userID, "usage: /alarm <HH:MM[:SS]> [message] | list | cancel <n> | repeat <n> <weekday> | unrepeat <n> <weekday> | move <n> <HH:MM[:SS]>")
		return
	}

	switch args[0] {
	case "list":
		alarms, err := g.engine.ListAlarms(ctx, userID)
		if err != nil {
			g.reply(userID, err.Error())
			return
		}
		if len(alarms) == 0 {
			g.reply(userID, "no alarms")
			return
		}
		var b strings.Builder
		b.WriteString("alarms:")
		for i, a := range alarms {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, a.ClockString())
			if r := a.RepeatString(); r != "" {
				fmt.Fprintf(&b, " repeating %s", r)
			}
			if a.Message != "" {
				fmt.Fprintf(&b, " (%s)", a.Message)
			}
		}
		g.reply(userID, b.String())
	case "cancel":
		n, ok := g.parseIndex(userID, args, 2)
		if !ok {
			return
		}
		a, err := g.engine.CancelAlarm(ctx, userID, n)
		if err != nil {
			g.reply(userID, err.Error())
			return
		}
		g.reply(userID, fmt.Sprintf("cancelled alarm for %s", a.ClockString()))
	case "repeat", "unrepeat":
		if len(args) < 3 {
			g.reply(userID, fmt.Sprintf("usage: /alarm %s <n> <weekday>", args[0]))
			return
		}
		n, ok := g.parseIndex(userID, args, 3)
		if !ok {
			return
		}
		day, ok := parseWeekday(args[2])
		if !ok {
			g.reply(userID, fmt.Sprintf("unknown weekday %q", args[2]))
			return
		}
		var (
			a   *domain.Alarm
			err error
		)
		if args[0] == "repeat" {
			a, err = g.engine.AddAlarmRepeat(ctx, userID, n, day)
		} else {
			a, err = g.engine.RemoveAlarmRepeat(ctx, userID, n, day)
		}
		if err != nil {
			g.reply(userID, err.Error())
			return
		}
		g.reply(userID, fmt.Sprintf("alarm %d now at %s", n, a.ClockString()))
	case "move":
		if len(args) < 3 {
			g.reply(userID, "usage: /alarm move <n> <HH:MM[:SS]>")
			return
		}
		n, ok := g.parseIndex(userID, args, 3)
		if !ok {
			return
		}
		hh, mm, ss, err := parseClock(args[2])
		if err != nil {
			g.reply(userID, err.Error())
			return
		}
		a, err := g.engine.RescheduleAlarm(ctx, userID, n, hh, mm, ss)
		if err != nil {
			g.reply(userID, err.Error())
			return
		}
		g.reply(userID, fmt.Sprintf("alarm %d moved to %s", n, a.ClockString()))
	default:
		hh, mm, ss, err := parseClock(args[0])
		if err != nil {
			g.reply(userID, err.Error())
			return
		}
		message := strings.Join(args[1:], " ")
		a, err := g.engine.SetAlarm(ctx, userID, hh, mm, ss, message, time.Now())
		if err != nil {
			g.reply(userID, err.Error())
			return
		}
		g.reply(userID, fmt.Sprintf("alarm set for %s", a.ClockString()))
	}
}

func (g *Gateway) parseIndex(userID string, args []string, minLen int) (int, bool) {
	if len(args) < minLen {
		g.reply(userID, "missing alarm number")
		return 0, false
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		g.reply(userID, "alarm number must be a number")
		return 0, false
	}
	return n, true
}

func parseClock(s string) (hh, mm, ss int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("clock time must be HH:MM or HH:MM:SS, got %q", s)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		nums[i], err = strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("clock time must be HH:MM or HH:MM:SS, got %q", s)
		}
	}
	hh, mm = nums[0], nums[1]
	if len(nums) == 3 {
		ss = nums[2]
	}
	return hh, mm, ss, nil
}

func parseWeekday(s string) (time.Weekday, bool) {
	switch strings.ToLower(s) {
	case "sunday", "sun":
		return time.Sunday, true
	case "monday", "mon":
		return time.Monday, true
	case "tuesday", "tue", "tues":
		return time.Tuesday, true
	case "wednesday", "wed":
		return time.Wednesday, true
	case "thursday", "thu", "thurs":
		return time.Thursday, true
	case "friday", "fri":
		return time.Friday, true
	case "saturday", "sat":
		return time.Saturday, true
	}
	return 0, false
}

func formatRemaining(dueAt time.Time) string {
	d := time.Until(dueAt)
	if d < 0 {
		d = 0
	}
	return d.Round(time.Second).String()
}
