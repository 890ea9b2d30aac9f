package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/databot/databot-backend/internal/database/repositories"
	"github.com/databot/databot-backend/internal/intent"
	"github.com/databot/databot-backend/internal/models"
	"github.com/databot/databot-backend/internal/session"
	"github.com/databot/databot-backend/internal/sqlgen"
)

const (
	noDataReply = "I don't have any data in memory for this conversation right now. " +
		"Ask me a data question first, then I can answer follow-ups, refine the query, or export the results."

	declinedExportReply = "Okay, no table. Anything else you'd like to know about this data?"

	interpreterFailedReply = "Sorry, I couldn't process that question about the current data. " +
		"Try rephrasing it, or ask a new data question."

	// declinedLabel tags declined export offers in the interaction log;
	// they are resolved before classification, outside the intent set.
	declinedLabel = "table_declined"
)

// historySeedWindow bounds how far back the interaction log is read
// when rebuilding context for a cold session. Older exchanges no
// longer read as live conversation.
const historySeedWindow = 24 * time.Hour

// Classifier labels an inbound message with one of the five intents.
type Classifier interface {
	Classify(ctx context.Context, message string, history []session.Turn, hasData bool) intent.Intent
}

// ResultInterpreter answers continuation questions from held data.
type ResultInterpreter interface {
	Answer(ctx context.Context, question string, rs *models.ResultSet, lastSummary, lastQuery string, history []session.Turn) (string, error)
}

// QueryRefiner modifies and re-executes the previous query.
type QueryRefiner interface {
	Refine(ctx context.Context, originalSQL, originalQuestion, refinementRequest string) (*QueryResult, error)
}

// QueryInitiator runs a brand-new question end to end.
type QueryInitiator interface {
	Analyze(ctx context.Context, question string) (*QueryResult, error)
}

// HelpResponder answers questions about the assistant itself.
type HelpResponder interface {
	Respond(ctx context.Context, question string) string
}

// InteractionLog persists every processed message and reads the recent
// ones back to rebuild conversational context for a cold session.
type InteractionLog interface {
	Record(ctx context.Context, rec repositories.Interaction) error
	RecentByConversation(ctx context.Context, userID, channelID string, limit int, since time.Duration) ([]repositories.Interaction, error)
}

// Orchestrator routes each inbound message through classification to
// exactly one handler and keeps the session state coherent. Each
// handler only ever receives the collaborators its contract allows.
type Orchestrator struct {
	store         *session.Store
	classifier    Classifier
	interpreter   ResultInterpreter
	refiner       QueryRefiner
	analyst       QueryInitiator
	informational HelpResponder
	exporter      Exporter
	interactions  InteractionLog
	historyWindow int
	logger        *logrus.Logger
}

// NewOrchestrator wires the router with its collaborators. The
// interactions recorder may be nil; recording is best-effort.
func NewOrchestrator(
	store *session.Store,
	classifier Classifier,
	interpreter ResultInterpreter,
	refiner QueryRefiner,
	analyst QueryInitiator,
	informational HelpResponder,
	exporter Exporter,
	interactions InteractionLog,
	historyWindow int,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:         store,
		classifier:    classifier,
		interpreter:   interpreter,
		refiner:       refiner,
		analyst:       analyst,
		informational: informational,
		exporter:      exporter,
		interactions:  interactions,
		historyWindow: historyWindow,
		logger:        logger,
	}
}

// ProcessMessage runs one inbound message start to finish: load or
// create the session, classify, dispatch to exactly one handler, update
// the session, and return the outcome for the transport layer.
// Messages for the same (user, channel) pair are serialized on the
// session lock; other sessions proceed in parallel.
func (o *Orchestrator) ProcessMessage(ctx context.Context, userID, channelID, text string) *models.Outcome {
	sess := o.store.GetOrCreate(userID, channelID)

	sess.Lock()
	defer sess.Unlock()

	if sess.HistoryLen() == 0 {
		o.seedHistory(ctx, sess)
	}

	history := sess.RecentHistory(o.historyWindow)
	hasData := sess.HasResult()

	label, fastPathed := intent.FastPath(text, history)
	if !fastPathed {
		if o.declinedOffer(text, history) {
			sess.AppendTurn(session.RoleUser, text)
			outcome := &models.Outcome{Reply: declinedExportReply}
			sess.AppendTurn(session.RoleAssistant, outcome.Reply)
			o.record(ctx, sess, declinedLabel, text, outcome)
			return outcome
		}
		label = o.classifier.Classify(ctx, text, history, hasData)
	}

	o.logger.WithFields(logrus.Fields{
		"user":      userID,
		"channel":   channelID,
		"intent":    label.String(),
		"fast_path": fastPathed,
		"has_data":  hasData,
	}).Info("Message classified")

	sess.AppendTurn(session.RoleUser, text)
	outcome := o.dispatch(ctx, sess, label, text, history)
	sess.AppendTurn(session.RoleAssistant, outcome.Reply)

	o.record(ctx, sess, label.String(), text, outcome)
	return outcome
}

// seedHistory rebuilds conversational context from the interaction log
// when a session starts cold, so follow-ups and offer replies keep
// working across a restart. The result state itself is not restorable;
// only the turns come back.
func (o *Orchestrator) seedHistory(ctx context.Context, sess *session.Session) {
	if o.interactions == nil {
		return
	}

	recs, err := o.interactions.RecentByConversation(ctx, sess.UserID, sess.ChannelID, o.historyWindow, historySeedWindow)
	if err != nil {
		o.logger.WithError(err).Warn("Failed to seed history from interaction log")
		return
	}
	for _, rec := range recs {
		sess.AppendTurn(session.RoleUser, rec.Message)
		sess.AppendTurn(session.RoleAssistant, rec.Reply)
	}
	if len(recs) > 0 {
		o.logger.WithFields(logrus.Fields{
			"user":         sess.UserID,
			"channel":      sess.ChannelID,
			"interactions": len(recs),
		}).Info("Session history seeded from interaction log")
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, sess *session.Session, label intent.Intent, text string, history []session.Turn) *models.Outcome {
	switch label {
	case intent.Continuation:
		return o.handleContinuation(ctx, sess, text, history)
	case intent.QueryRefinement:
		return o.handleRefinement(ctx, sess, text)
	case intent.TableRequest:
		return o.handleTableRequest(sess)
	case intent.NewDataQuery:
		return o.handleNewQuery(ctx, sess, text)
	case intent.Informational:
		return &models.Outcome{Reply: o.informational.Respond(ctx, text)}
	default:
		// Unreachable while the intent set is closed; a new intent
		// added without a handler lands here.
		o.logger.WithField("intent", int(label)).Error("No handler for intent")
		return &models.Outcome{Reply: informationalFallback}
	}
}

func (o *Orchestrator) handleContinuation(ctx context.Context, sess *session.Session, text string, history []session.Turn) *models.Outcome {
	if !sess.HasResult() {
		return &models.Outcome{Reply: noDataReply}
	}

	rs, query, summary, _ := sess.ResultState()
	answer, err := o.interpreter.Answer(ctx, text, rs, summary, query, history)
	if err != nil {
		o.logger.WithError(err).Error("Continuation handling failed")
		return &models.Outcome{Reply: interpreterFailedReply}
	}
	return &models.Outcome{Reply: answer}
}

func (o *Orchestrator) handleRefinement(ctx context.Context, sess *session.Session, text string) *models.Outcome {
	if !sess.HasResult() {
		return &models.Outcome{Reply: noDataReply}
	}

	_, query, _, question := sess.ResultState()
	result, err := o.refiner.Refine(ctx, query, question, text)
	if err != nil {
		// The previous result state stays intact on any failure.
		o.logger.WithError(err).Error("Refinement failed")
		if errors.Is(err, sqlgen.ErrGeneration) {
			return &models.Outcome{Reply: fmt.Sprintf(
				"I couldn't refine the previous query that way: %v. You could rephrase the refinement or ask a new question.", err)}
		}
		return &models.Outcome{Reply: fmt.Sprintf(
			"The refined query failed to run (%v). The previous results are still available; please try again.", err)}
	}

	// The refined result fully supersedes the previous one. The
	// originating question is kept: it still describes what the query
	// is structurally about.
	sess.SaveResult(result.Result, result.SQL, result.Summary, question)
	return &models.Outcome{Reply: result.Summary}
}

func (o *Orchestrator) handleTableRequest(sess *session.Session) *models.Outcome {
	if !sess.HasResult() {
		return &models.Outcome{Reply: noDataReply}
	}

	rs, query, _, _ := sess.ResultState()
	artifact, err := o.exporter.Export(rs, query)
	if err != nil {
		o.logger.WithError(err).Error("Export failed")
		return &models.Outcome{Reply: fmt.Sprintf("I couldn't generate the file: %v. Please try again.", err)}
	}
	return &models.Outcome{
		Reply:     fmt.Sprintf("Here is the table with %d rows.", rs.RowCount()),
		Exported:  true,
		Artifact:  artifact,
		QueryText: query,
	}
}

func (o *Orchestrator) handleNewQuery(ctx context.Context, sess *session.Session, text string) *models.Outcome {
	result, err := o.analyst.Analyze(ctx, text)
	if err != nil {
		// A failed fresh query must not clear earlier good state.
		o.logger.WithError(err).Error("New data query failed")
		if errors.Is(err, sqlgen.ErrGeneration) {
			return &models.Outcome{Reply: "I couldn't turn that into a query against our warehouse. Try rephrasing the question."}
		}
		return &models.Outcome{Reply: fmt.Sprintf("The query failed to run (%v). Please try again in a moment.", err)}
	}

	sess.SaveResult(result.Result, result.SQL, result.Summary, text)
	return &models.Outcome{Reply: result.Summary}
}

// declinedOffer is the negative half of the fast path: a bare "no"
// right after an export offer just acknowledges, with no model call.
func (o *Orchestrator) declinedOffer(text string, history []session.Turn) bool {
	if !intent.IsRejection(text) {
		return false
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != session.RoleAssistant {
			continue
		}
		return intent.OfferedTable(history[i].Text)
	}
	return false
}

func (o *Orchestrator) record(ctx context.Context, sess *session.Session, label, text string, outcome *models.Outcome) {
	if o.interactions == nil {
		return
	}

	rec := repositories.Interaction{
		UserID:    sess.UserID,
		ChannelID: sess.ChannelID,
		Message:   text,
		Intent:    label,
		Reply:     outcome.Reply,
	}
	if rs, query, _, _ := sess.ResultState(); rs != nil {
		rec.SQLQuery = query
		rec.RowCount = rs.RowCount()
	}
	if err := o.interactions.Record(ctx, rec); err != nil {
		o.logger.WithError(err).Warn("Failed to record interaction")
	}
}
