package service

import (
	"fmt"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/pkg/export"
)

// QuizHistoryTable lays out quiz attempt summaries for export.
func QuizHistoryTable(summaries []QuizAttemptSummary) export.Table {
	table := export.Table{
		Sheet:   "Quiz History",
		Headers: []string{"Module ID", "Module", "Attempt", "Score", "Total", "Percentage", "Taken At"},
		Rows:    make([][]interface{}, 0, len(summaries)),
	}
	for _, s := range summaries {
		table.Rows = append(table.Rows, []interface{}{
			s.ModuleID, s.ModuleTitle, s.AttemptNo, s.Score, s.Total, s.Percentage, s.TakenAt,
		})
	}
	return table
}

// AuditLogTable lays out audit logs for export.
func AuditLogTable(logs []entity.AuditLog) export.Table {
	table := export.Table{
		Sheet:   "Audit Logs",
		Headers: []string{"ID", "Time", "User ID", "User", "Action", "Entity Type", "Entity ID", "IP Address", "Details"},
		Rows:    make([][]interface{}, 0, len(logs)),
	}
	for _, l := range logs {
		// Nullable columns become empty cells
		userID, userName, entityID := "", "", ""
		if l.UserID != nil {
			userID = fmt.Sprintf("%d", *l.UserID)
		}
		if l.User != nil {
			userName = l.User.Name
		}
		if l.EntityID != nil {
			entityID = fmt.Sprintf("%d", *l.EntityID)
		}
		// Details as raw JSON
		details := ""
		if len(l.Details) > 0 {
			if raw, err := l.Details.MarshalJSON(); err == nil {
				details = string(raw)
			}
		}
		table.Rows = append(table.Rows, []interface{}{
			l.ID, l.CreatedAt, userID, userName, l.Action, l.EntityType, entityID, l.IPAddress, details,
		})
	}
	return table
}
