package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"zapcommerce/pkg/models"
)

// InboundMessage is the normalized form of a platform delivery: one
// customer-initiated message with its platform identity resolved to the
// identifier the rest of the system keys on (phone or username).
type InboundMessage struct {
	Platform           models.Platform
	PageExternalID     string // instagram page id or whatsapp business phone
	CustomerIdentifier string
	ExternalMessageID  string
	Text               string
	Timestamp          time.Time
}

// metaEnvelope covers the Graph-API webhook shape shared by Instagram and
// WhatsApp Cloud deliveries
type metaEnvelope struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string `json:"id"`
		Time      int64  `json:"time"`
		Messaging []struct {
			Sender    struct{ ID string } `json:"sender"`
			Recipient struct{ ID string } `json:"recipient"`
			Timestamp int64               `json:"timestamp"`
			Message   struct {
				MID  string `json:"mid"`
				Text string `json:"text"`
			} `json:"message"`
		} `json:"messaging"`
		Changes []struct {
			Value struct {
				Metadata struct {
					DisplayPhoneNumber string `json:"display_phone_number"`
				} `json:"metadata"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseInbound extracts the customer-initiated messages from a raw delivery.
// Deliveries that carry no messages (status updates, read receipts) yield an
// empty slice, which the ingestor records but does not process further.
func ParseInbound(platform models.Platform, rawBody []byte) ([]InboundMessage, error) {
	var envelope metaEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}

	var inbound []InboundMessage
	for _, entry := range envelope.Entry {
		// Instagram: messaging events keyed by page id
		for _, m := range entry.Messaging {
			if m.Message.MID == "" {
				continue
			}
			inbound = append(inbound, InboundMessage{
				Platform:           platform,
				PageExternalID:     entry.ID,
				CustomerIdentifier: m.Sender.ID,
				ExternalMessageID:  m.Message.MID,
				Text:               m.Message.Text,
				Timestamp:          time.UnixMilli(m.Timestamp),
			})
		}

		// WhatsApp Cloud: changes carrying message batches
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				if m.ID == "" {
					continue
				}
				inbound = append(inbound, InboundMessage{
					Platform:           platform,
					PageExternalID:     change.Value.Metadata.DisplayPhoneNumber,
					CustomerIdentifier: m.From,
					ExternalMessageID:  m.ID,
					Text:               m.Text.Body,
					Timestamp:          parseUnixSeconds(m.Timestamp),
				})
			}
		}
	}

	return inbound, nil
}

// ExtractPageID pulls the delivery's page identity without fully parsing
// it, so the receiver can resolve the merchant before anything else. Status
// deliveries carry it too; an empty result means the payload is not a Graph
// webhook at all.
func ExtractPageID(platform models.Platform, rawBody []byte) (string, error) {
	var envelope metaEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return "", fmt.Errorf("malformed webhook payload: %w", err)
	}

	for _, entry := range envelope.Entry {
		if platform == models.PlatformWhatsApp {
			for _, change := range entry.Changes {
				if phone := change.Value.Metadata.DisplayPhoneNumber; phone != "" {
					return phone, nil
				}
			}
		}
		if entry.ID != "" {
			return entry.ID, nil
		}
	}

	return "", fmt.Errorf("webhook payload carries no page identity")
}

func parseUnixSeconds(s string) time.Time {
	var secs int64
	if _, err := fmt.Sscanf(s, "%d", &secs); err != nil || secs <= 0 {
		return time.Now()
	}
	return time.Unix(secs, 0)
}
