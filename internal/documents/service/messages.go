package service

import (
	"time"

	citizen "barangay/internal/citizen/models"
	"barangay/internal/documents/models"
	"barangay/internal/notification/dispatcher"
)

const (
	smsPrefix           = "BRGY BAGONG BARRIO: "
	defaultDenialReason = "Please visit the barangay hall for more information."
)

func submittedMessage(p *citizen.Profile, r *models.Request) dispatcher.Message {
	return dispatcher.Message{
		Kind:      dispatcher.KindSubmitted,
		Phone:     p.PhoneNumber,
		RequestID: int64(r.ID),
		Body: smsPrefix + "Good day " + p.FullName() + "! Your request for " + r.Type.DisplayName() +
			" has been received and is now pending for approval. We will notify you once it's processed. Thank you!",
	}
}

func approvedMessage(p *citizen.Profile, r *models.Request, at time.Time) dispatcher.Message {
	return dispatcher.Message{
		Kind:      dispatcher.KindApproved,
		Phone:     p.PhoneNumber,
		RequestID: int64(r.ID),
		Body: smsPrefix + "Good news " + p.FullName() + "! Your request for " + r.Type.DisplayName() +
			" has been APPROVED on " + at.Format("1/2/2006") + ". You may now download your document. Thank you!",
	}
}

func deniedMessage(p *citizen.Profile, r *models.Request) dispatcher.Message {
	reason := defaultDenialReason
	if r.DenialReason != nil && *r.DenialReason != "" {
		reason = *r.DenialReason
	}
	return dispatcher.Message{
		Kind:      dispatcher.KindDenied,
		Phone:     p.PhoneNumber,
		RequestID: int64(r.ID),
		Body: smsPrefix + p.FullName() + ", your request for " + r.Type.DisplayName() +
			" has been DENIED. Reason: " + reason + ". Please contact the barangay hall for assistance. Thank you!",
	}
}
