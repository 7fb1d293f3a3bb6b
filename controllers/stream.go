// controllers/stream.go
package controllers

import (
	"io"
	"log"
	"net/http"

	"hydrapair-backend/services"
	"hydrapair-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type StreamController struct {
	DB       *gorm.DB
	Broker   *services.Broker
	Notifier services.NotificationCapability
}

// Stream serves the live reminder feed over SSE: one snapshot event with the
// current list, then insert/update events until the client disconnects. The
// feed behind it is torn down when the stream closes.
func (sc *StreamController) Stream(c *gin.Context) {
	callerID, ok := currentProfileID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Profile ID not found in context")
		return
	}

	feed := services.NewReminderFeed(sc.DB, sc.Broker, sc.Notifier)
	if err := feed.Activate(callerID); err != nil {
		// The subscription is live; the client starts from an empty snapshot.
		log.Printf("Feed activation incomplete for %s: %v", callerID, err)
	}
	defer feed.Deactivate()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("snapshot", feed.Reminders())
	c.Writer.Flush()

	events := feed.Events()
	clientGone := c.Request.Context().Done()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-events:
			if !open {
				return false
			}
			c.SSEvent(string(ev.Type), ev.Reminder)
			return true
		case <-clientGone:
			return false
		}
	})
}
