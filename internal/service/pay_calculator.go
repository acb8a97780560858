package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-timesheet-api/internal/models"
	"github.com/noah-isme/uni-timesheet-api/pkg/config"
	appErrors "github.com/noah-isme/uni-timesheet-api/pkg/errors"
)

// RepeatChecker answers whether a prior session of the same task type exists
// for the course within the trailing eligibility window. The caller-supplied
// repeat flag is advisory only; this check is the authoritative side.
type RepeatChecker interface {
	HasRecentSession(ctx context.Context, courseID string, taskType models.TaskType, before time.Time, windowDays int) (bool, error)
}

// RepeatCheckerFunc allows using plain functions.
type RepeatCheckerFunc func(ctx context.Context, courseID string, taskType models.TaskType, before time.Time, windowDays int) (bool, error)

// HasRecentSession implements RepeatChecker.
func (f RepeatCheckerFunc) HasRecentSession(ctx context.Context, courseID string, taskType models.TaskType, before time.Time, windowDays int) (bool, error) {
	return f(ctx, courseID, taskType, before, windowDays)
}

// PayInput carries the calculation facts for one session.
type PayInput struct {
	CourseID      string
	TaskType      models.TaskType
	SessionDate   time.Time
	DeliveryHours float64
	IsRepeat      bool
	Qualification models.Qualification
}

// PayBreakdown is the deterministic calculation outcome.
type PayBreakdown struct {
	RateCode        string               `json:"rate_code"`
	Qualification   models.Qualification `json:"qualification"`
	RepeatApplied   bool                 `json:"repeat_applied"`
	DeliveryHours   float64              `json:"delivery_hours"`
	AssociatedHours float64              `json:"associated_hours"`
	PayableHours    float64              `json:"payable_hours"`
	HourlyRate      float64              `json:"hourly_rate"`
	TotalPay        float64              `json:"total_pay"`
	Formula         string               `json:"formula"`
	ClauseReference string               `json:"clause_reference"`
}

// ratePolicy is one row of the Schedule 1 catalogue. Associated hours accrue
// per delivery hour; payable hours are capped where the agreement caps them.
type ratePolicy struct {
	rateCode         string
	hourlyRate       float64
	associatedFactor float64
	payableCap       float64
	clause           string
}

type rateKey struct {
	task      models.TaskType
	highBand  bool
	repeat    bool
	developed bool
}

// PayCalculator derives payable hours and pay from the Schedule 1 catalogue.
// It is deterministic for identical inputs and applies monetary rounding
// exactly once, at the end.
type PayCalculator struct {
	cfg       config.PayrollConfig
	repeats   RepeatChecker
	catalogue map[rateKey]ratePolicy
	logger    *zap.Logger
}

// NewPayCalculator constructs the calculator with explicit validation bounds.
func NewPayCalculator(cfg config.PayrollConfig, repeats RepeatChecker, logger *zap.Logger) *PayCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinHours <= 0 {
		cfg.MinHours = 0.1
	}
	if cfg.MaxHours <= 0 {
		cfg.MaxHours = 38.0
	}
	if cfg.RepeatWindowDays <= 0 {
		cfg.RepeatWindowDays = 7
	}
	if repeats == nil {
		repeats = RepeatCheckerFunc(func(context.Context, string, models.TaskType, time.Time, int) (bool, error) {
			return false, nil
		})
	}
	return &PayCalculator{cfg: cfg, repeats: repeats, catalogue: scheduleOneCatalogue(), logger: logger}
}

// scheduleOneCatalogue is the authoritative hours-to-pay mapping, one row per
// {task, band, repeat} combination. CONSULTATION sessions are paid under the
// "other required academic activity" rates.
func scheduleOneCatalogue() map[rateKey]ratePolicy {
	return map[rateKey]ratePolicy{
		{models.TaskTutorial, false, false, false}: {"TU2", 58.65, 2.0, 3.0, "Schedule 1 Clause 2.1"},
		{models.TaskTutorial, false, true, false}:  {"TU4", 58.65, 1.0, 2.0, "Schedule 1 Clause 2.2"},
		{models.TaskTutorial, true, false, false}:  {"TU1", 70.06, 2.0, 3.0, "Schedule 1 Clause 2.1"},
		{models.TaskTutorial, true, true, false}:   {"TU3", 70.07, 1.0, 2.0, "Schedule 1 Clause 2.2"},

		{models.TaskLecture, false, false, false}: {"P03", 81.69, 2.0, 3.0, "Schedule 1 - Lecturing"},
		{models.TaskLecture, false, false, true}:  {"P02", 81.70, 3.0, 4.0, "Schedule 1 - Lecturing"},
		{models.TaskLecture, false, true, false}:  {"P04", 81.71, 1.0, 2.0, "Schedule 1 - Lecturing"},

		{models.TaskDemo, false, false, false}: {"DE2", 58.32, 0, 0, "Schedule 1 Clause 3.1(a)"},
		{models.TaskDemo, true, false, false}:  {"DE1", 69.72, 0, 0, "Schedule 1 Clause 3.1(a)"},

		{models.TaskMarking, false, false, false}: {"M05", 58.32, 0, 0, "Schedule 1 - Marking"},
		{models.TaskMarking, true, false, false}:  {"M04", 69.72, 0, 0, "Schedule 1 - Marking"},

		{models.TaskORAA, false, false, false}: {"AO2", 58.32, 0, 0, "Schedule 1 Clause 3.1(a)"},
		{models.TaskORAA, true, false, false}:  {"AO1", 69.72, 0, 0, "Schedule 1 Clause 3.1(a)"},

		{models.TaskConsultation, false, false, false}: {"AO2", 58.32, 0, 0, "Schedule 1 Clause 3.1(a)"},
		{models.TaskConsultation, true, false, false}:  {"AO1", 69.72, 0, 0, "Schedule 1 Clause 3.1(a)"},
	}
}

// Calculate validates the input and produces the pay breakdown.
func (c *PayCalculator) Calculate(ctx context.Context, input PayInput) (*PayBreakdown, error) {
	if input.SessionDate.IsZero() || input.SessionDate.Weekday() != time.Monday {
		return nil, appErrors.Clone(appErrors.ErrInvalidSchedule,
			fmt.Sprintf("session date %s does not fall on a Monday", input.SessionDate.Format("2006-01-02")))
	}
	if !knownTaskType(input.TaskType) {
		return nil, appErrors.Clone(appErrors.ErrUnknownTaskType, fmt.Sprintf("unknown task type %q", input.TaskType))
	}
	delivery := roundHours(input.DeliveryHours)
	if err := c.validateDelivery(input.TaskType, delivery); err != nil {
		return nil, err
	}

	qualification := input.Qualification.Normalize()
	repeat, err := c.effectiveRepeat(ctx, input)
	if err != nil {
		return nil, err
	}

	policy, ok := c.resolvePolicy(input.TaskType, qualification, delivery, repeat)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownTaskType, fmt.Sprintf("no rate policy for task type %q", input.TaskType))
	}

	associated := roundHours(delivery * policy.associatedFactor)
	payable := delivery + associated
	if policy.payableCap > 0 && payable > policy.payableCap {
		payable = policy.payableCap
		associated = roundHours(payable - delivery)
	}
	payable = roundHours(payable)
	total := roundMoney(payable * policy.hourlyRate)

	return &PayBreakdown{
		RateCode:        policy.rateCode,
		Qualification:   qualification,
		RepeatApplied:   repeat,
		DeliveryHours:   delivery,
		AssociatedHours: associated,
		PayableHours:    payable,
		HourlyRate:      policy.hourlyRate,
		TotalPay:        total,
		Formula:         fmt.Sprintf("%sh delivery + %sh associated (EA %s)", formatHours(delivery), formatHours(associated), policy.clause),
		ClauseReference: policy.clause,
	}, nil
}

// effectiveRepeat honours the advisory flag only when the trailing-window
// check confirms a prior session; the lower of {requested, eligible} wins.
func (c *PayCalculator) effectiveRepeat(ctx context.Context, input PayInput) (bool, error) {
	if !input.IsRepeat || !repeatable(input.TaskType) {
		return false, nil
	}
	eligible, err := c.repeats.HasRecentSession(ctx, input.CourseID, input.TaskType, input.SessionDate, c.cfg.RepeatWindowDays)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check repeat eligibility")
	}
	if !eligible {
		c.logger.Debug("repeat flag ignored, no qualifying prior session",
			zap.String("course_id", input.CourseID),
			zap.String("task_type", string(input.TaskType)))
	}
	return eligible, nil
}

func (c *PayCalculator) resolvePolicy(task models.TaskType, qualification models.Qualification, delivery float64, repeat bool) (ratePolicy, bool) {
	key := rateKey{task: task}
	switch task {
	case models.TaskTutorial:
		key.highBand = qualification.IsHighBand()
		key.repeat = repeat
	case models.TaskLecture:
		// Repeat lectures pay the repeat rate; otherwise delivery beyond one
		// hour or a coordinator presenter attracts the developed-lecture rate.
		if repeat {
			key.repeat = true
		} else if delivery > 1.0 || qualification == models.QualificationCoordinator {
			key.developed = true
		}
	default:
		key.highBand = qualification.IsHighBand()
	}
	policy, ok := c.catalogue[key]
	return policy, ok
}

func (c *PayCalculator) validateDelivery(task models.TaskType, delivery float64) error {
	switch task {
	case models.TaskTutorial:
		// Tutorial delivery is pinned to a single contact hour under the
		// agreement; anything else is a validation error, not clamped.
		if delivery != 1.0 {
			return appErrors.Clone(appErrors.ErrInvalidHours, "tutorial delivery must be exactly 1.0 hour")
		}
	case models.TaskLecture:
		if delivery < 0.5 || delivery > 2.0 {
			return appErrors.Clone(appErrors.ErrInvalidHours, "lecture delivery must be between 0.5 and 2.0 hours")
		}
	default:
		if delivery < c.cfg.MinHours || delivery > c.cfg.MaxHours {
			return appErrors.Clone(appErrors.ErrInvalidHours,
				fmt.Sprintf("delivery hours must be between %.1f and %.1f", c.cfg.MinHours, c.cfg.MaxHours))
		}
	}
	return nil
}

func knownTaskType(task models.TaskType) bool {
	switch task {
	case models.TaskTutorial, models.TaskLecture, models.TaskDemo, models.TaskMarking, models.TaskORAA, models.TaskConsultation:
		return true
	default:
		return false
	}
}

// repeatable reports whether the catalogue defines a repeat rate for the task.
func repeatable(task models.TaskType) bool {
	return task == models.TaskTutorial || task == models.TaskLecture
}

// roundHours rounds to one decimal place, half up.
func roundHours(h float64) float64 {
	return math.Round(h*10) / 10
}

// roundMoney rounds to cents, half up.
func roundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

func formatHours(h float64) string {
	s := fmt.Sprintf("%.1f", h)
	if s[len(s)-1] == '0' {
		return s[:len(s)-2]
	}
	return s
}
