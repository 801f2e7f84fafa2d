package domain

import (
	"strconv"
	"time"
)

// CallStage is a state of the call state machine
type CallStage string

const (
	StageConnecting     CallStage = "connecting"
	StageGreeting       CallStage = "greeting"
	StageAdmissionCheck CallStage = "admission_check"
	StageRejected       CallStage = "rejected"
	StageGenderQuestion CallStage = "gender_question"
	StageNameQuestion   CallStage = "name_question"
	StageQuestioning    CallStage = "questioning"
	StageConcluding     CallStage = "concluding"
	StageHungUp         CallStage = "hung_up"
)

// Call is one telephone call leg driven by the orchestrator
type Call struct {
	ID            string
	CallerNumber  string
	Stage         CallStage
	RetryCount    int
	ActiveGrammar string
	Gender        Gender
	Name          string
	Questions     int
	Result        *Outcome
	HangupReason  string
	StartedAt     time.Time
}

// ChannelEvent is an event pushed by the telephony switch for a call
type ChannelEvent struct {
	Name    string
	Headers map[string]string
	Body    string
}

func (e ChannelEvent) Header(key string) string {
	return e.Headers[key]
}

// Application is the dialplan application an execute-complete event refers to
func (e ChannelEvent) Application() string {
	return e.Headers["variable_current_application"]
}

// Event names consumed by the call orchestrator
const (
	EventChannelExecuteComplete = "CHANNEL_EXECUTE_COMPLETE"
	EventDetectedSpeech         = "DETECTED_SPEECH"
)

// CallRecord is the persisted summary of a finished call
type CallRecord struct {
	CallID       string    `json:"call_id"`
	CallerNumber string    `json:"caller_number,omitempty"`
	Gender       Gender    `json:"gender,omitempty"`
	Name         string    `json:"name,omitempty"`
	Stage        CallStage `json:"stage"`
	Questions    int       `json:"questions"`
	ResultKind   string    `json:"result_kind,omitempty"`
	ResultText   string    `json:"result_text,omitempty"`
	HangupReason string    `json:"hangup_reason,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
}

// Record snapshots the call for persistence
func (c *Call) Record(endedAt time.Time) CallRecord {
	rec := CallRecord{
		CallID:       c.ID,
		CallerNumber: c.CallerNumber,
		Gender:       c.Gender,
		Name:         c.Name,
		Stage:        c.Stage,
		Questions:    c.Questions,
		HangupReason: c.HangupReason,
		StartedAt:    c.StartedAt,
		EndedAt:      endedAt,
	}
	if c.Result != nil {
		rec.ResultKind = c.Result.Kind.String()
		rec.ResultText = c.Result.Text
	}
	return rec
}

// CallEventType classifies lifecycle notifications
type CallEventType string

const (
	CallEventStarted  CallEventType = "call.started"
	CallEventStage    CallEventType = "call.stage"
	CallEventRejected CallEventType = "call.rejected"
	CallEventFinished CallEventType = "call.finished"
)

// CallEvent is published on every call lifecycle change
type CallEvent struct {
	ID        string        `json:"id"`
	CallID    string        `json:"call_id"`
	Type      CallEventType `json:"type"`
	Stage     CallStage     `json:"stage"`
	Text      string        `json:"text,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// AdmissionStatus reports current call capacity
type AdmissionStatus struct {
	Active int `json:"active"`
	Max    int `json:"max"`
}

func (s AdmissionStatus) String() string {
	return strconv.Itoa(s.Active) + "/" + strconv.Itoa(s.Max)
}
