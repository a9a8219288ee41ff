package adapter

// PopSystemMessage returns the first system message and the remaining messages
// with every system message removed. The returned message is nil when there is none.
func PopSystemMessage(messages []Message) (*Message, []Message) {
	var system *Message
	rest := make([]Message, 0, len(messages))

	for i := range messages {
		if messages[i].Role != RoleSystem {
			rest = append(rest, messages[i])
			continue
		}
		if system == nil {
			msg := messages[i]
			system = &msg
		}
	}

	return system, rest
}

// FlattenMessages converts host messages to the provider's flat list, preserving order.
// Messages without a role are skipped, each non-empty text part becomes its own entry,
// and image parts that cannot be converted are dropped without affecting their siblings.
func FlattenMessages(messages []Message) []ProviderMessage {
	out := make([]ProviderMessage, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == "" {
			continue
		}

		if !msg.Content.IsParts() {
			if msg.Content.Text != "" {
				out = append(out, ProviderMessage{Role: msg.Role, Content: msg.Content.Text})
			}
			continue
		}

		for _, part := range msg.Content.Parts {
			switch part.Type {
			case PartTypeText:
				if part.Text != "" {
					out = append(out, ProviderMessage{Role: msg.Role, Content: part.Text})
				}
			case PartTypeImageURL:
				if img, ok := ConvertImage(part); ok {
					out = append(out, img)
				}
			}
		}
	}

	return out
}
