package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"gateway-emulator/internal/apperr"
	"gateway-emulator/internal/messaging"
	"github.com/go-chi/chi/v5"
)

const (
	codeInvalidParameter = 100
	codeAccessToken      = 190
	subcodeUnknownObject = 33
)

type graphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode,omitempty"`
	FBTraceID    string `json:"fbtrace_id"`
}

type graphErrorResponse struct {
	Error graphError `json:"error"`
}

func writeMessagingError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	code := codeInvalidParameter
	if e.Kind == apperr.KindUnauthorized {
		code = codeAccessToken
	}
	if n, convErr := strconv.Atoi(e.Code); convErr == nil {
		code = n
	}
	writeJSON(w, httpStatus(err), graphErrorResponse{Error: graphError{
		Message:   e.Message,
		Type:      "OAuthException",
		Code:      code,
		FBTraceID: requestIDFromContext(r.Context()),
	}})
}

type textBody struct {
	Body string `json:"body"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateBody struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components"`
}

func (t templateBody) params() []string {
	var out []string
	for _, c := range t.Components {
		if c.Type != "" && !strings.EqualFold(c.Type, "body") {
			continue
		}
		for _, p := range c.Parameters {
			out = append(out, p.Text)
		}
	}
	return out
}

type replyButton struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type actionButton struct {
	Type  string      `json:"type"`
	Reply replyButton `json:"reply"`
}

type interactiveAction struct {
	Buttons []actionButton `json:"buttons"`
}

type interactiveText struct {
	Text string `json:"text"`
}

type interactiveBody struct {
	Type        string             `json:"type"`
	Body        *interactiveText   `json:"body,omitempty"`
	Action      *interactiveAction `json:"action,omitempty"`
	ButtonReply *replyButton       `json:"button_reply,omitempty"`
	ListReply   *replyButton       `json:"list_reply,omitempty"`
}

func (b *interactiveBody) toInteractive() *messaging.Interactive {
	if b == nil {
		return nil
	}
	out := &messaging.Interactive{Type: b.Type}
	if b.Body != nil {
		out.Body = b.Body.Text
	}
	if b.Action != nil {
		for _, btn := range b.Action.Buttons {
			out.Buttons = append(out.Buttons, messaging.Button{ID: btn.Reply.ID, Title: btn.Reply.Title})
		}
	}
	reply := b.ButtonReply
	if reply == nil {
		reply = b.ListReply
	}
	if reply != nil {
		out.ReplyID, out.ReplyTitle = reply.ID, reply.Title
	}
	return out
}

// sendMessageRequest is the Cloud API message body. From is an emulator
// extension: a user phone there simulates an incoming reply.
type sendMessageRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	From             string           `json:"from"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *textBody        `json:"text"`
	Template         *templateBody    `json:"template"`
	Interactive      *interactiveBody `json:"interactive"`
}

type sendTemplateRequest struct {
	To       string   `json:"to"`
	Name     string   `json:"name"`
	Language string   `json:"language"`
	Params   []string `json:"params"`
}

type contactRef struct {
	Input string `json:"input"`
	WaID  string `json:"wa_id"`
}

type messageRef struct {
	ID string `json:"id"`
}

type sendMessageResponse struct {
	MessagingProduct string       `json:"messaging_product"`
	Contacts         []contactRef `json:"contacts"`
	Messages         []messageRef `json:"messages"`
}

type messageView struct {
	ID           string `json:"id"`
	From         string `json:"from"`
	To           string `json:"to"`
	Direction    string `json:"direction"`
	Type         string `json:"type"`
	Text         string `json:"text"`
	Status       string `json:"status"`
	Timestamp    string `json:"timestamp"`
	TemplateName string `json:"template_name,omitempty"`
	ReplyID      string `json:"reply_id,omitempty"`
	DeliveredAt  string `json:"delivered_at,omitempty"`
	ReadAt       string `json:"read_at,omitempty"`
	FailedAt     string `json:"failed_at,omitempty"`
}

func toMessageView(m messaging.Message) messageView {
	view := messageView{
		ID:          m.ID,
		From:        m.From,
		To:          m.To,
		Direction:   string(m.Direction),
		Type:        string(m.Type),
		Text:        m.Text,
		Status:      string(m.Status),
		Timestamp:   strconv.FormatInt(m.CreatedAt.Unix(), 10),
		DeliveredAt: formatOptional(m.DeliveredAt),
		ReadAt:      formatOptional(m.ReadAt),
		FailedAt:    formatOptional(m.FailedAt),
	}
	if m.Template != nil {
		view.TemplateName = m.Template.Name
	}
	if m.Interactive != nil {
		view.ReplyID = m.Interactive.ReplyID
	}
	return view
}

type profileView struct {
	Language     string `json:"language,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
	Category     string `json:"category,omitempty"`
	UPIID        string `json:"upi_id,omitempty"`
}

type conversationView struct {
	Phone     string      `json:"phone"`
	State     string      `json:"state"`
	Profile   profileView `json:"profile"`
	UpdatedAt string      `json:"updated_at,omitempty"`
}

type conversationResponse struct {
	Data         []messageView    `json:"data"`
	Conversation conversationView `json:"conversation"`
}

func toConversationResponse(c messaging.Conversation) conversationResponse {
	data := make([]messageView, 0, len(c.Messages))
	for _, m := range c.Messages {
		data = append(data, toMessageView(m))
	}
	view := conversationView{
		Phone: c.Phone,
		State: string(c.State),
		Profile: profileView{
			Language:     c.Profile.Language,
			BusinessName: c.Profile.BusinessName,
			Category:     c.Profile.Category,
			UPIID:        c.Profile.UPIID,
		},
	}
	if !c.UpdatedAt.IsZero() {
		view.UpdatedAt = c.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return conversationResponse{Data: data, Conversation: view}
}

type templateView struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Status   string `json:"status"`
	Category string `json:"category"`
}

type statusRequest struct {
	Status messaging.Status `json:"status"`
}

type messagingHandler struct {
	messages      *messaging.Emulator
	phoneNumberID string
}

func (h *messagingHandler) routes(r chi.Router) {
	r.Get("/webhook", h.verifyWebhook)
	r.Route("/{version}/{phone_number_id}", func(r chi.Router) {
		r.Use(h.phoneNumberMiddleware)
		r.Post("/messages", h.sendMessage)
		r.Get("/messages", h.listMessages)
		r.Put("/messages/{message_id}/status", h.updateStatus)
		r.Get("/templates", h.listTemplates)
		r.Post("/templates", h.sendTemplate)
		r.Post("/onboarding/{phone}", h.startOnboarding)
		r.Get("/conversations/{phone}", h.getConversation)
		r.Delete("/conversations/{phone}", h.clearConversation)
	})
}

func (h *messagingHandler) phoneNumberMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chi.URLParam(r, "phone_number_id"); h.phoneNumberID != "" && id != h.phoneNumberID {
			writeJSON(w, http.StatusBadRequest, graphErrorResponse{Error: graphError{
				Message:      "Unsupported post request. Object with ID '" + id + "' does not exist",
				Type:         "GraphMethodException",
				Code:         codeInvalidParameter,
				ErrorSubcode: subcodeUnknownObject,
				FBTraceID:    requestIDFromContext(r.Context()),
			}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *messagingHandler) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	challenge, err := h.messages.VerifyWebhook(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"))
	if err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

func (h *messagingHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessagingError(w, r, err)
		return
	}
	send := messaging.SendRequest{
		From:        req.From,
		To:          req.To,
		Type:        messaging.MessageType(req.Type),
		Interactive: req.Interactive.toInteractive(),
	}
	if send.Type == "" {
		send.Type = messaging.TypeText
	}
	if req.Text != nil {
		send.Text = req.Text.Body
	}
	if req.Template != nil {
		send.Template = &messaging.TemplateRequest{
			Name:     req.Template.Name,
			Language: req.Template.Language.Code,
			Params:   req.Template.params(),
		}
	}

	msg, err := h.messages.SendMessage(r.Context(), send)
	if err != nil {
		writeMessagingError(w, r, err)
		return
	}
	writeSendResponse(w, req.To, req.From, msg)
}

func writeSendResponse(w http.ResponseWriter, to, from string, msg messaging.Message) {
	input := to
	if msg.Direction == messaging.Inbound {
		input = from
	}
	writeJSON(w, http.StatusOK, sendMessageResponse{
		MessagingProduct: "whatsapp",
		Contacts:         []contactRef{{Input: input, WaID: msg.Phone}},
		Messages:         []messageRef{{ID: msg.ID}},
	})
}

func (h *messagingHandler) sendTemplate(w http.ResponseWriter, r *http.Request) {
	var req sendTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessagingError(w, r, err)
		return
	}
	msg, err := h.messages.SendTemplate(r.Context(), req.To, req.Name, req.Language, req.Params)
	if err != nil {
		writeMessagingError(w, r, err)
		return
	}
	writeSendResponse(w, req.To, "", msg)
}

func (h *messagingHandler) listMessages(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone_number")
	if messaging.NormalizePhone(phone) == "" {
		writeMessagingError(w, r, apperr.Validation("phone_number", "The parameter phone_number is required."))
		return
	}
	writeJSON(w, http.StatusOK, toConversationResponse(h.messages.Conversation(phone)))
}

func (h *messagingHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessagingError(w, r, err)
		return
	}
	msg, err := h.messages.UpdateMessageStatus(r.Context(), chi.URLParam(r, "message_id"), req.Status)
	if err != nil {
		writeMessagingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": toMessageView(msg)})
}

func (h *messagingHandler) listTemplates(w http.ResponseWriter, _ *http.Request) {
	var data []templateView
	for _, t := range messaging.Templates() {
		for _, lang := range t.Languages() {
			data = append(data, templateView{Name: t.Name, Language: lang, Status: t.Status, Category: t.Category})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (h *messagingHandler) startOnboarding(w http.ResponseWriter, r *http.Request) {
	conv, err := h.messages.StartOnboarding(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		writeMessagingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toConversationResponse(conv))
}

func (h *messagingHandler) getConversation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toConversationResponse(h.messages.Conversation(chi.URLParam(r, "phone"))))
}

func (h *messagingHandler) clearConversation(w http.ResponseWriter, r *http.Request) {
	h.messages.ClearConversation(chi.URLParam(r, "phone"))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
