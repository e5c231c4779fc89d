package templates

import "donorcast-service/internal/domain/entity"

// DefaultFollowUpTemplates returns the built-in follow-up emails referenced
// by the default rules
func DefaultFollowUpTemplates() []*entity.EmailTemplate {
	return []*entity.EmailTemplate{
		{
			ID:      "followup-gentle",
			Name:    "Gentle reminder",
			Subject: "Quick reminder: blood drive at {{organization}}",
			Body: "<p>Hi {{firstName}},</p>" +
				"<p>Just a quick reminder about the upcoming blood drive. Every donation can save up to three lives, and we'd love to have you there.</p>" +
				"<p>If you have a moment, reply to this email or use the signup link we sent earlier.</p>" +
				"<p>Best regards,<br>The Blood Drive Team</p>",
			Variables: []string{"firstName", "organization"},
		},
		{
			ID:      "followup-final",
			Name:    "Final reminder",
			Subject: "Last chance to sign up, {{firstName}}",
			Body: "<p>Hi {{firstName}},</p>" +
				"<p>This is our last reminder about the blood drive. Spots are filling up, and we wanted to make sure you didn't miss out.</p>" +
				"<p>No pressure either way - and thank you for considering it.</p>" +
				"<p>Best regards,<br>The Blood Drive Team</p>",
			Variables: []string{"firstName"},
		},
		{
			ID:      "followup-concern",
			Name:    "Concern follow-up",
			Subject: "Following up on your message",
			Body: "<p>Hi {{firstName}},</p>" +
				"<p>We saw your reply and wanted to follow up personally. If anything about the drive gave you a poor experience, we'd genuinely like to hear about it.</p>" +
				"<p>Best regards,<br>The Blood Drive Team</p>",
			Variables: []string{"firstName"},
		},
	}
}

// DefaultFollowUpRules returns the built-in follow-up policy: two reminders
// for silent contacts and a faster personal touch after a negative reply
func DefaultFollowUpRules() []*entity.FollowUpRule {
	return []*entity.FollowUpRule{
		{
			ID:   "rule-no-reply",
			Name: "No reply reminder",
			Conditions: entity.FollowUpConditions{
				NoReplyAfterDays: 3,
				MaxFollowUps:     2,
			},
			TemplateID: "followup-gentle",
			Enabled:    true,
		},
		{
			ID:   "rule-negative-escalation",
			Name: "Negative reply escalation",
			Conditions: entity.FollowUpConditions{
				NoReplyAfterDays: 1,
				MaxFollowUps:     1,
				SentimentFilter:  []string{entity.SentimentNegative},
			},
			TemplateID: "followup-concern",
			Enabled:    true,
		},
	}
}
