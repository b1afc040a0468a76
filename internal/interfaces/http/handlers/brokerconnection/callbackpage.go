package brokerconnection

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/dto"
	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/usecases"
	"github.com/autotraderhub/autotrader/internal/shared/constants"
	"github.com/autotraderhub/autotrader/internal/shared/services/markdown"
)

const callbackPageTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: #f5f6fa;
            color: #1f2933;
        }
        .card {
            max-width: 420px;
            padding: 32px;
            border-radius: 12px;
            background: #fff;
            box-shadow: 0 8px 24px rgba(15, 23, 42, 0.08);
            border-top: 4px solid %s;
        }
        h2 { margin-top: 0; }
        a { color: #2563eb; }
    </style>
</head>
<body>
    <div class="card">%s</div>
</body>
</html>`

// Callback handles GET /broker-connections/callback/:broker
//
// Brokers redirect the user's browser here after login, so the response is
// an HTML page rather than JSON.
//
//	@Summary	Complete a broker login
//	@Tags		broker-connections
//	@Produce	html
//	@Param		broker	path	string	true	"Broker name"
//	@Success	200
//	@Failure	400
//	@Router		/broker-connections/callback/{broker} [get]
func (h *Handler) Callback(c *gin.Context) {
	cmd := usecases.CompleteBrokerCallbackCommand{
		BrokerName: c.Param("broker"),
		Query:      c.Request.URL.Query(),
	}

	result, err := h.callbackUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		code := callbackErrorCode(err)
		h.logger.Warnw("broker callback failed", "broker", cmd.BrokerName, "code", code, "error", err)
		h.renderCallback(c, callbackStatus(code), "Broker login failed", "#dc2626", h.failureMarkdown(code))
		return
	}

	h.logger.Infow("broker callback completed", "broker", result.BrokerName, "sid", result.ConnectionID, "intent", result.Intent)
	h.renderCallback(c, http.StatusOK, "Broker connected", "#16a34a", h.successMarkdown(result))
}

func (h *Handler) renderCallback(c *gin.Context, status int, title, accent, body string) {
	content, err := h.pages.ToHTMLSanitized(body)
	if err != nil {
		h.logger.Errorw("failed to render callback page", "error", err)
		content = "<p>" + title + "</p>"
	}

	c.Header("Cache-Control", "no-store")
	c.Data(status, "text/html; charset=utf-8", []byte(fmt.Sprintf(callbackPageTemplate, title, accent, content)))
}

func (h *Handler) successMarkdown(result *dto.CallbackResult) string {
	var b strings.Builder
	b.WriteString("## Broker connected\n\n")
	fmt.Fprintf(&b, "**%s** is now linked to %s.\n\n",
		markdown.Escape(result.ConnectionName), markdown.Escape(strings.ToUpper(result.BrokerName)))
	if result.ExpiresAt != nil {
		fmt.Fprintf(&b, "The session is valid until %s.\n\n", result.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	b.WriteString("You can close this window.")
	h.writeDashboardLink(&b, "Back to dashboard")
	return b.String()
}

func (h *Handler) failureMarkdown(code constants.CallbackErrorCode) string {
	var b strings.Builder
	b.WriteString("## Broker login failed\n\n")
	b.WriteString(markdown.Escape(constants.GetCallbackErrorMessage(code)))
	b.WriteString("\n\nPlease start the login again from the dashboard.")
	h.writeDashboardLink(&b, "Open dashboard")
	return b.String()
}

func (h *Handler) writeDashboardLink(b *strings.Builder, label string) {
	if h.dashboardURL == "" {
		return
	}
	fmt.Fprintf(b, "\n\n[%s](%s)", label, h.dashboardURL)
}

func callbackErrorCode(err error) constants.CallbackErrorCode {
	var cbErr *usecases.CallbackError
	if stderrors.As(err, &cbErr) {
		return cbErr.Code
	}
	return constants.CallbackErrorStorageFailed
}

func callbackStatus(code constants.CallbackErrorCode) int {
	switch code {
	case constants.CallbackErrorUnknownConn:
		return http.StatusNotFound
	case constants.CallbackErrorExchangeFailed:
		return http.StatusBadGateway
	case constants.CallbackErrorLimitExceeded:
		return http.StatusConflict
	case constants.CallbackErrorStorageFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
