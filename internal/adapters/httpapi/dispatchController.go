package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type DispatchController struct{ dc DispatchUseCase }

func NewDispatchController(dc DispatchUseCase) *DispatchController {
	return &DispatchController{dc: dc}
}

// Run executes one dispatch pass and returns the per-post summary. The
// external time trigger hits this every minute; overlapping calls are safe
// because the row claim is the concurrency control.
func (ctl *DispatchController) Run(c *gin.Context) {
	summary, err := ctl.dc.RunDue(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dispatch run failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
