package emergencyv1

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/sos-button/internal/domain/emergency"
)

// Field names of the Struct representation.
const (
	fieldActor            = "actor"
	fieldHostname         = "hostname"
	fieldUsername         = "username"
	fieldPhase            = "phase"
	fieldSecondsRemaining = "seconds_remaining"
	fieldCycleID          = "cycle_id"
	fieldUpdatedAt        = "updated_at"
	fieldLastActor        = "last_actor"
	fieldHooks            = "hooks"
	fieldName             = "name"
	fieldOK               = "ok"
	fieldError            = "error"
	fieldStartedAt        = "started_at"
	fieldDurationMS       = "duration_ms"
	fieldKind             = "kind"
	fieldAt               = "at"
	fieldState            = "state"
	fieldNotice           = "notice"
	fieldHook             = "hook"
	fieldLevel            = "level"
	fieldMessage          = "message"
)

var (
	// ErrActorRequired is returned when a request carries no actor.
	ErrActorRequired = errors.New("actor is required")
	// ErrUnknownPhase is returned for a phase name this build does not know.
	ErrUnknownPhase = errors.New("unknown phase")
	// ErrStateRequired is returned when a state payload is missing.
	ErrStateRequired = errors.New("state is required")
	// errHookFailed stands in for hook errors that arrived without a message.
	errHookFailed = errors.New("hook failed")
)

// NewActorRequest builds the request payload for Start, Cancel and Reset.
func NewActorRequest(actor *domain.Actor) *structpb.Struct {
	fields := map[string]*structpb.Value{}
	if actor != nil {
		fields[fieldActor] = structpb.NewStructValue(ActorToStruct(actor))
	}

	return &structpb.Struct{Fields: fields}
}

// ActorFromRequest extracts the actor of a Start, Cancel or Reset request.
func ActorFromRequest(req *structpb.Struct) (*domain.Actor, error) {
	actor := ActorFromStruct(req.GetFields()[fieldActor].GetStructValue())
	if actor == nil || (actor.Hostname == "" && actor.Username == "") {
		return nil, ErrActorRequired
	}

	return actor, nil
}

// ActorToStruct converts a domain actor.
func ActorToStruct(actor *domain.Actor) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldHostname: structpb.NewStringValue(actor.Hostname),
			fieldUsername: structpb.NewStringValue(actor.Username),
		},
	}
}

// ActorFromStruct converts back to a domain actor. A nil Struct yields nil.
func ActorFromStruct(s *structpb.Struct) *domain.Actor {
	if s == nil {
		return nil
	}

	return &domain.Actor{
		Hostname: s.GetFields()[fieldHostname].GetStringValue(),
		Username: s.GetFields()[fieldUsername].GetStringValue(),
	}
}

// StateToStruct converts a domain state. A nil state yields an idle state.
func StateToStruct(state *domain.State) *structpb.Struct {
	if state == nil {
		state = domain.NewState()
	}

	fields := map[string]*structpb.Value{
		fieldPhase:            structpb.NewStringValue(state.Phase.String()),
		fieldSecondsRemaining: structpb.NewNumberValue(float64(state.SecondsRemaining)),
		fieldCycleID:          structpb.NewStringValue(state.CycleID),
	}

	if !state.UpdatedAt.IsZero() {
		fields[fieldUpdatedAt] = structpb.NewStringValue(formatTime(state.UpdatedAt))
	}

	if state.LastActor != nil {
		fields[fieldLastActor] = structpb.NewStructValue(ActorToStruct(state.LastActor))
	}

	if len(state.Hooks) > 0 {
		hooks := make([]*structpb.Value, 0, len(state.Hooks))
		for _, result := range state.Hooks {
			hooks = append(hooks, structpb.NewStructValue(HookResultToStruct(result)))
		}

		fields[fieldHooks] = structpb.NewListValue(&structpb.ListValue{Values: hooks})
	}

	return &structpb.Struct{Fields: fields}
}

// StateFromStruct converts back to a domain state.
func StateFromStruct(s *structpb.Struct) (*domain.State, error) {
	if s == nil {
		return nil, ErrStateRequired
	}

	fields := s.GetFields()

	phaseName := fields[fieldPhase].GetStringValue()

	phase, ok := domain.ParsePhase(phaseName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPhase, phaseName)
	}

	updatedAt, err := parseTime(fields[fieldUpdatedAt].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fieldUpdatedAt, err)
	}

	state := &domain.State{
		Phase:            phase,
		SecondsRemaining: int(fields[fieldSecondsRemaining].GetNumberValue()),
		CycleID:          fields[fieldCycleID].GetStringValue(),
		UpdatedAt:        updatedAt,
		LastActor:        ActorFromStruct(fields[fieldLastActor].GetStructValue()),
	}

	for _, value := range fields[fieldHooks].GetListValue().GetValues() {
		result, err := HookResultFromStruct(value.GetStructValue())
		if err != nil {
			return nil, err
		}

		state.Hooks = append(state.Hooks, result)
	}

	return state, nil
}

// HookResultToStruct converts a hook result.
func HookResultToStruct(result domain.HookResult) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldName:       structpb.NewStringValue(result.Name),
		fieldOK:         structpb.NewBoolValue(result.OK()),
		fieldDurationMS: structpb.NewNumberValue(float64(result.Duration.Milliseconds())),
	}

	if !result.StartedAt.IsZero() {
		fields[fieldStartedAt] = structpb.NewStringValue(formatTime(result.StartedAt))
	}

	if result.Err != nil {
		fields[fieldError] = structpb.NewStringValue(result.Err.Error())
	}

	return &structpb.Struct{Fields: fields}
}

// HookResultFromStruct converts back to a hook result. Errors only keep their message.
func HookResultFromStruct(s *structpb.Struct) (domain.HookResult, error) {
	fields := s.GetFields()

	startedAt, err := parseTime(fields[fieldStartedAt].GetStringValue())
	if err != nil {
		return domain.HookResult{}, fmt.Errorf("parse %s: %w", fieldStartedAt, err)
	}

	result := domain.HookResult{
		Name:      fields[fieldName].GetStringValue(),
		StartedAt: startedAt,
		Duration:  time.Duration(fields[fieldDurationMS].GetNumberValue()) * time.Millisecond,
	}

	if !fields[fieldOK].GetBoolValue() {
		result.Err = errHookFailed
		if msg := fields[fieldError].GetStringValue(); msg != "" {
			result.Err = errors.New(msg) //nolint:err113 // Remote error text.
		}
	}

	return result, nil
}

// UpdateToStruct converts a broadcast update.
func UpdateToStruct(update *domain.Update) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldKind:  structpb.NewStringValue(string(update.Kind)),
		fieldAt:    structpb.NewStringValue(formatTime(update.At)),
		fieldState: structpb.NewStructValue(StateToStruct(update.State)),
	}

	if update.Notice != nil {
		fields[fieldNotice] = structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				fieldLevel:   structpb.NewStringValue(string(update.Notice.Level)),
				fieldMessage: structpb.NewStringValue(update.Notice.Message),
			},
		})
	}

	if update.Hook != nil {
		fields[fieldHook] = structpb.NewStructValue(HookResultToStruct(*update.Hook))
	}

	return &structpb.Struct{Fields: fields}
}

// UpdateFromStruct converts back to a broadcast update.
func UpdateFromStruct(s *structpb.Struct) (*domain.Update, error) {
	fields := s.GetFields()

	at, err := parseTime(fields[fieldAt].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fieldAt, err)
	}

	state, err := StateFromStruct(fields[fieldState].GetStructValue())
	if err != nil {
		return nil, err
	}

	update := &domain.Update{
		Kind:  domain.UpdateKind(fields[fieldKind].GetStringValue()),
		At:    at,
		State: state,
	}

	if notice := fields[fieldNotice].GetStructValue(); notice != nil {
		update.Notice = &domain.Notice{
			Level:   domain.NoticeLevel(notice.GetFields()[fieldLevel].GetStringValue()),
			Message: notice.GetFields()[fieldMessage].GetStringValue(),
		}
	}

	if hook := fields[fieldHook].GetStructValue(); hook != nil {
		result, err := HookResultFromStruct(hook)
		if err != nil {
			return nil, err
		}

		update.Hook = &result
	}

	return update, nil
}

// formatTime renders timestamps in UTC RFC 3339 with nanoseconds.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses formatTime output. Empty input yields the zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339Nano, s)
}
