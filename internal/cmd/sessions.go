package cmd

import (
	"context"
	"fmt"
	"os"

	"washbay/internal/domain"
	"washbay/internal/services"
	"washbay/logging"
)

// SessionsCmd manages wash sessions
type SessionsCmd struct {
	Assign    SessionsAssignCmd    `cmd:"assign" help:"Manually assign a session to a box (operator)"`
	Cancel    SessionsCancelCmd    `cmd:"cancel" help:"Cancel a session that has not started"`
	Chemistry SessionsChemistryCmd `cmd:"chemistry" help:"Turn on the chemistry add-on"`
	Complete  SessionsCompleteCmd  `cmd:"complete" help:"Complete an active session (operator)"`
	Create    SessionsCreateCmd    `cmd:"create" help:"Book a new session"`
	Expire    SessionsExpireCmd    `cmd:"expire" help:"Expire an overdue session (operator)"`
	Extend    SessionsExtendCmd    `cmd:"extend" help:"Add paid minutes to an active session"`
	Fail      SessionsFailCmd      `cmd:"fail" help:"Record a failed payment"`
	List      SessionsListCmd      `cmd:"list" help:"List sessions" default:"1"`
	Queue     SessionsQueueCmd     `cmd:"queue" help:"Record a successful payment and join the queue"`
	QueueList SessionsQueueListCmd `cmd:"queue-list" help:"List queued sessions in FIFO order"`
	Reassign  SessionsReassignCmd  `cmd:"reassign" help:"Move a session off a faulty box (operator)"`
	Start     SessionsStartCmd     `cmd:"start" help:"Start the rental clock"`
	View      SessionsViewCmd      `cmd:"view" help:"View a session"`
}

type sessionOp func(ctx context.Context, c *Container, actor domain.Actor) (*domain.Session, error)

// runSessionOp executes op as the caller and prints the resulting session
func runSessionOp(cli *CLI, format string, op sessionOp) error {
	actor, err := cli.Caller()
	if err != nil {
		return err
	}
	ctx := context.Background()
	s, err := op(ctx, cli.Container, actor)
	if err != nil {
		return err
	}
	view, err := cli.Container.PollingService.GetSession(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	return printSession(format, *view)
}

func printSession(format string, view services.SessionView) error {
	if format == formatTable {
		renderSessionDetail(os.Stdout, view)
		return nil
	}
	return writeStructured(os.Stdout, format, view)
}

// SessionsCreateCmd books a new session
type SessionsCreateCmd struct {
	Car       string `help:"Car plate number"`
	Chemistry bool   `help:"Book the chemistry add-on (wash only)"`
	Format    string `help:"Output format" enum:"table,json,yaml" default:"table"`
	Rental    int    `help:"Rental time in minutes" required:""`
	Service   string `help:"Service type" enum:"wash,air_dry,vacuum" required:""`
}

// Run executes the create command
func (s *SessionsCreateCmd) Run(cli *CLI) error {
	logging.Logger.Debug("Executing sessions create command", "service", s.Service, "rental", s.Rental)
	return runSessionOp(cli, s.Format, func(ctx context.Context, c *Container, actor domain.Actor) (*domain.Session, error) {
		serviceType, err := domain.ParseServiceType(s.Service)
		if err != nil {
			return nil, err
		}
		return c.SessionRegistry.Create(ctx, actor, services.CreateSessionParams{
			CarNumber:         s.Car,
			RentalTimeMinutes: s.Rental,
			ServiceType:       serviceType,
			WithChemistry:     s.Chemistry,
		})
	})
}

// SessionTarget is shared by commands that act on one session
type SessionTarget struct {
	Format string `help:"Output format" enum:"table,json,yaml" default:"table"`
	ID     string `arg:"" help:"Session id"`
}

// SessionsQueueCmd records a successful payment
type SessionsQueueCmd struct {
	SessionTarget `embed:""`
}

// Run executes the queue command
func (s *SessionsQueueCmd) Run(cli *CLI) error {
	return runSessionOp(cli, s.Format, func(ctx context.Context, c *Container, actor domain.Actor) (*domain.Session, error) {
		return c.SessionRegistry.MarkQueued(ctx, actor, s.ID)
	})
}

// SessionsFailCmd records a failed payment
type SessionsFailCmd struct {
	SessionTarget `embed:""`
}

// Run executes the fail command
func (s *SessionsFailCmd) Run(cli *CLI) error {
	return runSessionOp(cli, s.Format, func(ctx context.Context, c *Container, actor domain.Actor) (*domain.Session, error) {
		return c.SessionRegistry.MarkFailed(ctx, actor, s.ID)
	})
}

// SessionsStartCmd starts the rental clock
type SessionsStartCmd struct {
	SessionTarget `embed:""`
}

// Run executes the start command
func (s *SessionsStartCmd) Run(cli *CLI) error {
	return runSessionOp(cli, s.Format, func(ctx context.Context, c *Container, actor domain.Actor) (*domain.Session, error) {
		return c.SessionRegistry.Start(ctx, actor, s.ID)
	})
}

// SessionsChemistryCmd enables chemistry
type SessionsChemistryCmd struct {
	SessionTarget `embed:""`
}

// Run executes the chemistry command
func (s *SessionsChemistryCmd) Run(cli *CLI) error {
	return runSessionOp(cli, s.Format, func(ctx context.Context, c *Container, actor domain.Actor) (*domain.Session, error) {
		return c.SessionRegistry.EnableChemistry(ctx, actor, s.ID)
	})
}

// SessionsCompleteCmd completes an active session
type SessionsCompleteCmd struct {
	SessionTarget `embed:""`
}

// Run executes the complete command
func (s *SessionsCompleteCmd) Run(cli *CLI) error {
	return runSessionOp(cli, s.Format, func(ctx context.Context, c *Container, actor domain.Actor) (*domain.Session, error) {
		return c.SessionRegistry.Complete(ctx, actor, s.ID)
	})
}

// SessionsCancelCmd cancels a session
type SessionsCancelCmd struct {
	SessionTarget `embed:""`
}

// Run executes the cancel command
func (s *SessionsCancelCmd) Run(cli *CLI) error {
	return runSessionOp(cli, s.Format, func(ctx context.Context, c *Container, actor domain.Actor) (*domain.Session, error) {
		return c.SessionRegistry.Cancel(ctx, actor, s.ID)
	})
}

// SessionsExpireCmd expires an overdue session
type SessionsExpireCmd struct {
	SessionTarget `embed:""`
}

// Run executes the expire command
func (s *SessionsExpireCmd) Run(cli *CLI) error {
	return runSessionOp(cli, s.Format, func(ctx context.Context, c *Container, actor domain.Actor) (*domain.Session, error) {
		return c.SessionRegistry.Expire(ctx, actor, s.ID)
	})
}

// SessionsReassignCmd moves a session off a faulty box
type SessionsReassignCmd struct {
	SessionTarget `embed:""`
	Reason        string `help:"Why the box is taken out of service"`
}

// Run executes the reassign command
func (s *SessionsReassignCmd) Run(cli *CLI) error {
	return runSessionOp(cli, s.Format, func(ctx context.Context, c *Container, actor domain.Actor) (*domain.Session, error) {
		return c.Reassignment.Reassign(ctx, actor, s.ID, s.Reason)
	})
}

// SessionsAssignCmd assigns a session to a specific box
type SessionsAssignCmd struct {
	SessionTarget `embed:""`
	Box           int `arg:"" help:"Box number"`
}

// Run executes the assign command
func (s *SessionsAssignCmd) Run(cli *CLI) error {
	return runSessionOp(cli, s.Format, func(ctx context.Context, c *Container, actor domain.Actor) (*domain.Session, error) {
		box, err := c.BoxRegistry.GetByNumber(ctx, s.Box)
		if err != nil {
			return nil, err
		}
		return c.SessionRegistry.Assign(ctx, actor, s.ID, box.ID)
	})
}

// SessionsExtendCmd extends an active session
type SessionsExtendCmd struct {
	SessionTarget `embed:""`
	Minutes       int `arg:"" help:"Minutes to add"`
}

// Run executes the extend command
func (s *SessionsExtendCmd) Run(cli *CLI) error {
	return runSessionOp(cli, s.Format, func(ctx context.Context, c *Container, actor domain.Actor) (*domain.Session, error) {
		return c.SessionRegistry.Extend(ctx, actor, s.ID, s.Minutes)
	})
}

// SessionsViewCmd views one session with its timers
type SessionsViewCmd struct {
	SessionTarget `embed:""`
}

// Run executes the view command
func (s *SessionsViewCmd) Run(cli *CLI) error {
	view, err := cli.Container.PollingService.GetSession(context.Background(), s.ID)
	if err != nil {
		return err
	}
	return printSession(s.Format, *view)
}

// SessionsListCmd lists sessions
type SessionsListCmd struct {
	Format string   `help:"Output format" enum:"table,json,yaml" default:"table"`
	Since  string   `help:"Only sessions updated at or after this time (RFC3339 or relative, e.g. 30m)"`
	Status []string `help:"Filter by status (repeatable)" short:"s"`
}

// Run executes the list command
func (s *SessionsListCmd) Run(cli *CLI) error {
	since, err := parseTimeFlag(s.Since, cli.Container.Now())
	if err != nil {
		return err
	}
	filter := domain.SessionFilter{Since: since}
	for _, name := range s.Status {
		st, err := domain.ParseSessionStatus(name)
		if err != nil {
			return err
		}
		filter.Statuses = append(filter.Statuses, st)
	}

	ctx := context.Background()
	sessions, err := cli.Container.SessionRegistry.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	views := make([]services.SessionView, 0, len(sessions))
	for _, sess := range sessions {
		view, err := cli.Container.PollingService.GetSession(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("failed to read session %s: %w", sess.ID, err)
		}
		views = append(views, *view)
	}

	if s.Format == formatTable {
		renderSessions(os.Stdout, views)
		return nil
	}
	return writeStructured(os.Stdout, s.Format, views)
}

// SessionsQueueListCmd lists the waiting queue with positions
type SessionsQueueListCmd struct {
	Format string `help:"Output format" enum:"table,json,yaml" default:"table"`
}

// Run executes the queue-list command
func (s *SessionsQueueListCmd) Run(cli *CLI) error {
	views, err := cli.Container.PollingService.Queue(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list queue: %w", err)
	}
	if s.Format == formatTable {
		renderSessions(os.Stdout, views)
		return nil
	}
	return writeStructured(os.Stdout, s.Format, views)
}
