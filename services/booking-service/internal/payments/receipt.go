package payments

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/model"
)

// GenerateReceipt returns a human-facing reference of the form
// REC-<METHOD>-<last 6 digits of the epoch millisecond timestamp>.
// Two receipts generated in the same millisecond (or 1000 seconds apart) collide;
// receipts are never used as keys.
func GenerateReceipt(method model.PaymentMethod, now time.Time) string {
	code := strings.ToUpper(strings.TrimSpace(string(method)))
	return fmt.Sprintf("REC-%s-%06d", code, now.UnixMilli()%1_000_000)
}
