package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/intelligencedev/clinical-core/internal/model"
)

func applyPrivacy(e model.AuditEntry, mode PrivacyMode, now time.Time) model.AuditEntry {
	switch mode {
	case PrivacyFull:
		return e
	case PrivacyRedacted:
		if now.Sub(e.Timestamp) < AnonymizationThreshold {
			return e
		}
		e.PatientID = hashID(e.PatientID)
		e.UserID = hashID(e.UserID)
		e.SessionID = hashID(e.SessionID)
		e.QueryText = "[REDACTED]"
		e.ResponseSummary = "[REDACTED]"
		return e
	case PrivacyMinimal:
		e.PatientID = hashID(e.PatientID)
		e.UserID = hashID(e.UserID)
		e.SessionID = hashID(e.SessionID)
		e.QueryText = "[REDACTED]"
		e.ResponseSummary = "[REDACTED]"
		e.IP = ""
		e.UA = ""
		e.LLM = model.LLMAudit{Model: e.LLM.Model, Version: e.LLM.Version}
		return e
	default:
		return e
	}
}

func hashID(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:8])
}
