package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/castlecab/backoffice/internal/api/dto"
	"github.com/castlecab/backoffice/internal/domain/duplicates"
)

func intQuery(c *gin.Context, name string, defaultVal int) int {
	val := c.Query(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func actorOrDefault(actor string) string {
	if actor == "" {
		return defaultActor
	}
	return actor
}

func duplicateResponses(matches []duplicates.Match) []dto.DuplicateResponse {
	out := make([]dto.DuplicateResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, dto.DuplicateResponse{
			ReceiptID:           m.ReceiptID,
			ReceiptDate:         m.ReceiptDate.Format(dateLayout),
			GrossAmount:         m.GrossAmount.StringFixed(2),
			RawVendorName:       m.RawVendorName,
			DaysApart:           m.DaysApart,
			Linked:              m.Linked,
			LinkedTransactionID: m.LinkedTransactionID,
		})
	}
	return out
}
