package delivery

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/pkg/mailer"
)

// ContactHandler forwards contact-form submissions to the support inbox.
type ContactHandler struct {
	mailer    mailer.Mailer
	recipient string
	log       *logrus.Logger
}

func NewContactHandler(m mailer.Mailer, recipient string, logger *logrus.Logger) *ContactHandler {
	return &ContactHandler{
		mailer:    m,
		recipient: recipient,
		log:       logger,
	}
}

func (h *ContactHandler) RegisterRoutes(public gin.IRouter) {
	public.POST("/contact", h.Submit)
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (h *ContactHandler) Submit(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for contact form: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Email == "" || req.Message == "" {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: name, email and message cannot be empty")
		return
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = "Contact form submission"
	}
	body := fmt.Sprintf("From: %s <%s>\n\n%s", req.Name, req.Email, req.Message)

	if err := h.mailer.Send(h.recipient, subject, body); err != nil {
		h.log.Errorf("Failed to send contact email from '%s': %v", req.Email, err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to send message")
		return
	}

	h.log.Infof("Contact form submission from '%s' forwarded to %s", req.Email, h.recipient)
	SuccessResponse(c, http.StatusOK, "Message sent successfully", nil)
}
