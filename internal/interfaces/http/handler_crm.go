package http

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"whatsbot/internal/entities"
	"whatsbot/internal/usecases"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Members

func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.Members.List(c.Request.Context(), entities.MemberFilter{
		ClientID: clientIDQuery(c),
		Status:   entities.MemberStatus(c.Query("status")),
		Category: c.Query("category"),
		Search:   SanitizeString(c.Query("search")),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, members)
}

func (h *Handler) CreateMember(c *gin.Context) {
	var req struct {
		ClientID string `json:"clientId"`
		usecases.MemberPatch
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.Phone != nil && !ValidPhone(*req.Phone) {
		fail(c, http.StatusBadRequest, "Telefone inválido")
		return
	}
	m, err := h.Members.Create(c.Request.Context(), req.ClientID, req.MemberPatch)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, m)
}

func (h *Handler) UpdateMember(c *gin.Context) {
	var p usecases.MemberPatch
	if !bindJSON(c, &p) {
		return
	}
	if p.Phone != nil && !ValidPhone(*p.Phone) {
		fail(c, http.StatusBadRequest, "Telefone inválido")
		return
	}
	m, err := h.Members.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

func (h *Handler) DeleteMember(c *gin.Context) {
	if err := h.Members.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) ExportMembers(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.Reports.ExportMembers(c.Request.Context(), clientIDQuery(c), &buf); err != nil {
		h.handleError(c, err)
		return
	}
	sendWorkbook(c, "membros", &buf)
}

// Conversations

func (h *Handler) ListConversations(c *gin.Context) {
	convs, err := h.Conversations.List(c.Request.Context(), conversationFilter(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, convs)
}

func conversationFilter(c *gin.Context) entities.ConversationFilter {
	return entities.ConversationFilter{
		ClientID: c.Query("clientId"),
		Status:   entities.ConversationStatus(c.Query("status")),
		Phone:    c.Query("phone"),
	}
}

func (h *Handler) GetConversation(c *gin.Context) {
	conv, err := h.Conversations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, conv)
}

func (h *Handler) UpdateConversation(c *gin.Context) {
	var p usecases.ConversationPatch
	if !bindJSON(c, &p) {
		return
	}
	conv, err := h.Conversations.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, conv)
}

func (h *Handler) ReplyConversation(c *gin.Context) {
	var req struct {
		Text    string `json:"text"`
		Resolve bool   `json:"resolve"`
	}
	if !bindJSON(c, &req) {
		return
	}
	text := TruncateString(SanitizeString(req.Text), MaxMessageLength)
	msg, err := h.Conversations.Reply(c.Request.Context(), c.Param("id"), text, req.Resolve)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, msg)
}

func (h *Handler) ExportConversations(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.Reports.ExportConversations(c.Request.Context(), conversationFilter(c), &buf); err != nil {
		h.handleError(c, err)
		return
	}
	sendWorkbook(c, "conversas", &buf)
}

func sendWorkbook(c *gin.Context, kind string, buf *bytes.Buffer) {
	c.Header("Content-Disposition", `attachment; filename="`+usecases.ReportFilename(kind)+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Templates

func (h *Handler) ListTemplates(c *gin.Context) {
	ctx := c.Request.Context()
	if niche := c.Query("niche"); niche != "" && c.Query("clientId") == "" {
		templates, err := h.Templates.ListNiche(ctx, entities.Niche(niche))
		if err != nil {
			h.handleError(c, err)
			return
		}
		ok(c, http.StatusOK, templates)
		return
	}
	templates, err := h.Templates.List(ctx, entities.TemplateFilter{
		ClientID: clientIDQuery(c),
		Category: c.Query("category"),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, templates)
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req struct {
		ClientID string `json:"clientId"`
		usecases.TemplatePatch
	}
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.Templates.Create(c.Request.Context(), req.ClientID, req.TemplatePatch)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, t)
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	var p usecases.TemplatePatch
	if !bindJSON(c, &p) {
		return
	}
	t, err := h.Templates.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	if err := h.Templates.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": true})
}

// PreviewTemplate renders a template with the given variables.
func (h *Handler) PreviewTemplate(c *gin.Context) {
	var req struct {
		Variables map[string]string `json:"variables"`
	}
	if !bindJSON(c, &req) {
		return
	}
	content, err := h.Templates.Render(c.Request.Context(), c.Param("id"), req.Variables)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"content": content})
}

// Flows

func (h *Handler) ListFlows(c *gin.Context) {
	flows, err := h.Flows.List(c.Request.Context(), clientIDQuery(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, flows)
}

func (h *Handler) CreateFlow(c *gin.Context) {
	var req struct {
		ClientID string `json:"clientId"`
		usecases.FlowPatch
	}
	if !bindJSON(c, &req) {
		return
	}
	f, err := h.Flows.Create(c.Request.Context(), req.ClientID, req.FlowPatch)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, f)
}

func (h *Handler) UpdateFlow(c *gin.Context) {
	var p usecases.FlowPatch
	if !bindJSON(c, &p) {
		return
	}
	f, err := h.Flows.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, f)
}

func (h *Handler) DeleteFlow(c *gin.Context) {
	if err := h.Flows.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": true})
}
