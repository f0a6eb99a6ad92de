package chat

import (
	"fmt"
	"strings"

	contactmodels "phone-sim-demo/backend/contact/models"
	convmodels "phone-sim-demo/backend/conversation/models"
	loremodels "phone-sim-demo/backend/lore/models"
)

// ChatMessage is one role/content pair on the completion wire format
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest is the composed input for one gateway call
type GenerationRequest struct {
	Messages []ChatMessage
}

// Composer builds generation requests from persona, lore, restrictions and
// windowed history. Composition is pure: it performs no I/O, so the caller
// must pass freshly-loaded persona and lore.
type Composer struct {
	HistoryWindow int
	MinFragments  int
}

// NewComposer creates a composer with the given history window and
// fragment goal
func NewComposer(historyWindow, minFragments int) *Composer {
	if historyWindow <= 0 {
		historyWindow = 20
	}
	if minFragments <= 0 {
		minFragments = 5
	}
	return &Composer{HistoryWindow: historyWindow, MinFragments: minFragments}
}

// Compose builds the generation request for one turn. It fails only when
// the contact carries no usable persona.
func (c *Composer) Compose(
	contact *contactmodels.Contact,
	user contactmodels.UserProfile,
	history []convmodels.Message,
	lore []loremodels.LoreEntry,
	forbidden []loremodels.ForbiddenWord,
) (*GenerationRequest, error) {
	if contact == nil || strings.TrimSpace(contact.Persona) == "" {
		id := ""
		if contact != nil {
			id = contact.ID
		}
		return nil, newMissingPersonaError(id)
	}

	maxWords := contact.MaxWords
	if maxWords <= 0 {
		maxWords = 50
	}

	worldInfo := make([]string, 0, len(lore))
	for _, entry := range lore {
		worldInfo = append(worldInfo, fmt.Sprintf("[%s]: %s", entry.Name, entry.Content))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %q. Persona: %s. User: %q.\n", contact.Name, contact.Persona, user.Name)
	b.WriteString("ONLINE MODE: This is a real-time chat.\n")
	b.WriteString("- DO NOT include actions, psychological descriptions, or narrative text (like *smiles* or [thinking to self]).\n")
	b.WriteString("- Talk naturally, briefly, and casually like you are texting on your phone.\n")
	b.WriteString("- STATUS: You must decide your mood based on the plot. Use [STATUS: mood] at the VERY START of your response to update your permanent status bar (e.g., [STATUS: 手机在线], [STATUS: 心动中], [STATUS: 忙碌], [STATUS: 激动]). Ensure it fits your persona and world setting. No OOC.\n")
	fmt.Fprintf(&b, "- Split your response into at least %d separate messages.\n", c.MinFragments)
	fmt.Fprintf(&b, "- Use the delimiter %s to separate each message in your output.\n", Delimiter)
	fmt.Fprintf(&b, "World: %s\n", strings.Join(worldInfo, "\n"))
	fmt.Fprintf(&b, "Settings: Max Word: %d.\n", maxWords)
	if len(forbidden) > 0 {
		words := make([]string, 0, len(forbidden))
		for _, w := range forbidden {
			words = append(words, w.Word)
		}
		fmt.Fprintf(&b, "Forbidden: %s\n", strings.Join(words, ", "))
	}
	b.WriteString("\nExample output:\n")
	fmt.Fprintf(&b, "[STATUS: 开心] %[1]s 你好呀！ %[1]s 刚刚在看好笑的视频 %[1]s 哎呀 %[1]s 真的太有趣了 %[1]s 你今天过得怎么样？", Delimiter)

	messages := make([]ChatMessage, 0, c.HistoryWindow+1)
	messages = append(messages, ChatMessage{Role: "system", Content: b.String()})

	windowed := history
	if len(windowed) > c.HistoryWindow {
		windowed = windowed[len(windowed)-c.HistoryWindow:]
	}
	for _, msg := range windowed {
		role := "assistant"
		if msg.IsSelf {
			role = "user"
		}
		messages = append(messages, ChatMessage{Role: role, Content: renderContent(msg)})
	}

	return &GenerationRequest{Messages: messages}, nil
}

// renderContent maps a message to its prompt representation. Non-text
// kinds become bracketed placeholders so the model keeps turn-taking
// context for them.
func renderContent(msg convmodels.Message) string {
	switch msg.Kind {
	case convmodels.KindText:
		return msg.Text
	case convmodels.KindSimulatedImage:
		return fmt.Sprintf("[Photo: %s]", msg.Caption)
	default:
		return fmt.Sprintf("[%s]", msg.Kind)
	}
}
