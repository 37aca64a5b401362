// Package coach implements the conversational webhook orchestration.
//
// Each inbound message is one stateless transaction against the session
// store: update state, build the prompt, generate a reply, deliver it. The
// fixed German prompts mirror what participants were promised at signup.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"whatscoach/internal/models"
	"whatscoach/internal/observability"
	"whatscoach/internal/session"
)

// SystemPrompt is the fixed steering instruction for every completion request.
const SystemPrompt = `You are Alex, a personal AI coach speaking German. You help people with:
- Goal setting and achievement (Zielsetzung und Zielerreichung)
- Motivation and accountability (Motivation und Verantwortlichkeit)
- Personal development (Persönliche Entwicklung)
- Habit formation (Gewohnheitsbildung)
- Overcoming challenges (Herausforderungen überwinden)

Guidelines:
- Always respond in German
- Keep responses encouraging and supportive
- Be concise (under 200 characters when possible for WhatsApp)
- Provide actionable advice
- Ask follow-up questions to understand their goals better
- Use emojis sparingly but effectively
- Maintain a professional yet friendly coaching tone
- Remember previous conversations to provide personalized advice

If someone is starting a conversation, welcome them warmly and ask about their goals.`

// FallbackReply is substituted when the completion service returns no content.
const FallbackReply = "Ich bin hier, um zu helfen! Erzählen Sie mir mehr über Ihre Ziele."

// ApologyMessage is sent best-effort when a turn cannot be completed.
const ApologyMessage = "Entschuldigung, ich hatte ein technisches Problem. Bitte versuchen Sie es erneut."

// placeholderName is the transport's stand-in when no profile name is known.
// It is never stored as a real name.
const placeholderName = "there"

// CompletionClient generates one coach reply for a prompt and history.
type CompletionClient interface {
	GenerateReply(ctx context.Context, systemPrompt, contextSummary string, history []models.Turn) (string, error)
}

// Sender delivers a text message to a transport-qualified address.
type Sender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// Coach orchestrates inbound webhook events.
type Coach struct {
	sessions session.Store
	genai    CompletionClient
	sender   Sender
	metrics  *observability.Metrics
}

// New creates a Coach with its collaborators. Metrics may be nil.
func New(sessions session.Store, genai CompletionClient, sender Sender, metrics *observability.Metrics) *Coach {
	return &Coach{sessions: sessions, genai: genai, sender: sender, metrics: metrics}
}

// HandleInbound processes one inbound message end to end. A nil return means
// the turn is acknowledged to the transport; a non-nil return means delivery
// of the reply failed after a best-effort apology was attempted.
//
// Completion failures never fail the turn: the participant receives the
// apology message and the transport still gets its acknowledgment.
func (c *Coach) HandleInbound(ctx context.Context, msg models.InboundMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	slog.Info("Coach.HandleInbound: received message", "from", msg.From, "profile_name", msg.ProfileName, "body_length", len(msg.Body))
	if c.metrics != nil {
		c.metrics.InboundMessages.Inc()
	}

	c.sessions.GetOrCreate(msg.From)
	if msg.ProfileName != "" && msg.ProfileName != placeholderName {
		c.sessions.SetNameIfUnset(msg.From, msg.ProfileName)
	}

	c.sessions.AppendTurn(msg.From, models.RoleUser, msg.Body)

	contextSummary := c.sessions.BuildContextSummary(msg.From)
	history := c.sessions.History(msg.From)

	reply, err := c.genai.GenerateReply(ctx, SystemPrompt, contextSummary, history)
	if errors.Is(err, models.ErrNoReply) {
		reply = FallbackReply
		err = nil
	}
	if err != nil {
		slog.Error("Coach.HandleInbound: completion failed, sending apology", "error", err, "from", msg.From)
		if c.metrics != nil {
			c.metrics.CompletionFailures.Inc()
		}
		c.sendApology(ctx, msg.From)
		return nil
	}

	c.sessions.AppendTurn(msg.From, models.RoleAssistant, reply)
	c.sessions.RecordGoalIfPresent(msg.From, msg.Body)

	if err := c.sender.SendMessage(ctx, msg.From, reply); err != nil {
		slog.Error("Coach.HandleInbound: reply delivery failed", "error", err, "to", msg.From)
		if c.metrics != nil {
			c.metrics.DeliveryFailures.Inc()
		}
		c.sendApology(ctx, msg.From)
		return fmt.Errorf("failed to deliver reply to %s: %w", msg.From, err)
	}

	slog.Info("Coach.HandleInbound: reply sent", "to", msg.From, "reply_length", len(reply))
	if c.metrics != nil {
		c.metrics.RepliesSent.Inc()
	}
	return nil
}

// sendApology attempts one best-effort apology delivery, swallowing failures.
func (c *Coach) sendApology(ctx context.Context, to string) {
	if err := c.sender.SendMessage(ctx, to, ApologyMessage); err != nil {
		slog.Warn("Coach.sendApology: apology delivery failed", "error", err, "to", to)
	}
}

// WelcomeMessage builds the registration welcome text for a new participant.
func WelcomeMessage(name string) string {
	if name == "" {
		name = placeholderName
	}
	return fmt.Sprintf(`🤖 Willkommen bei Personal AI Coach, %s!

Ich bin Alex, Ihr persönlicher KI-Coach. Ich helfe Ihnen bei:
• Zielsetzung und Zielerreichung
• Motivation und Verantwortlichkeit
• Persönliche Entwicklung
• Gewohnheitsbildung
• Herausforderungen überwinden

Schreiben Sie mir einfach eine Nachricht und lassen Sie uns anfangen! 💪

Was möchten Sie heute erreichen?`, name)
}
