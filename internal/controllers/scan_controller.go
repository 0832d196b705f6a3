package controllers

import (
	"net/http"

	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type ScanController struct {
	scans         ScanAPI
	maxFrameBytes int64
}

func NewScanController(scans ScanAPI, maxFrameBytes int64) *ScanController {
	if maxFrameBytes <= 0 {
		maxFrameBytes = 8 << 20
	}
	return &ScanController{scans: scans, maxFrameBytes: maxFrameBytes}
}

// ScanCode handles POST /scan/code
func (sc *ScanController) ScanCode(c *gin.Context) {
	var req scanCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	out, err := sc.scans.ScanCode(c.Request.Context(), middleware.CurrentEmail(c), req.Code)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ScanFrame handles POST /scan/frame with a multipart "frame" image.
func (sc *ScanController) ScanFrame(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sc.maxFrameBytes)

	fh, err := c.FormFile("frame")
	if err != nil {
		badRequest(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()

	out, err := sc.scans.ScanFrame(c.Request.Context(), middleware.CurrentEmail(c), f)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
