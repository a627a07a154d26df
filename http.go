package drip

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/interactive-solutions/go-drip/internal"
)

type HttpHandler struct {
	engine *engine
}

// Router wires every endpoint of the CRUD and trigger surface.
func (h *HttpHandler) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/campaigns", h.CreateCampaign).Methods(http.MethodPost)
	router.HandleFunc("/campaigns", h.ListCampaigns).Methods(http.MethodGet)
	router.HandleFunc("/campaigns/{id}", h.GetCampaign).Methods(http.MethodGet)
	router.HandleFunc("/campaigns/{id}", h.DeleteCampaign).Methods(http.MethodDelete)
	router.HandleFunc("/campaigns/{id}/preview", h.Preview).Methods(http.MethodPost)
	router.HandleFunc("/campaigns/{id}/contacts/import", h.ImportContacts).Methods(http.MethodPost)
	router.HandleFunc("/campaigns/{id}/send", h.SendCampaign).Methods(http.MethodPost)
	router.HandleFunc("/campaigns/{id}/contacts/{contactId}/mark-replied", h.MarkReplied).Methods(http.MethodPost)
	router.HandleFunc("/campaigns/{id}/contacts/{contactId}/unsubscribe", h.Unsubscribe).Methods(http.MethodPost)
	router.HandleFunc("/campaigns/{id}/followups", h.CreateFollowUp).Methods(http.MethodPost)
	router.HandleFunc("/campaigns/{id}/followups", h.ListFollowUps).Methods(http.MethodGet)
	router.HandleFunc("/campaigns/{id}/followups/{fid}", h.UpdateFollowUp).Methods(http.MethodPut)
	router.HandleFunc("/campaigns/{id}/followups/{fid}", h.DeleteFollowUp).Methods(http.MethodDelete)
	router.HandleFunc("/campaigns/{id}/deliveries", h.ListDeliveries).Methods(http.MethodGet)

	return router
}

func (h *HttpHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	body := &internal.CreateCampaignRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	if body.Name == "" || body.MainTemplate.Subject == "" {
		http.Error(w, "Missing required fields: name and mainTemplate.subject", 400)
		return
	}

	now := h.engine.now()

	campaign := &Campaign{
		Id:          uuid.New().String(),
		Name:        body.Name,
		Description: body.Description,
		MainTemplate: Template{
			Subject: body.MainTemplate.Subject,
			Html:    body.MainTemplate.Html,
			Text:    body.MainTemplate.Text,
		},
		Settings: Settings{
			FromEmail: body.Settings.FromEmail,
			ReplyTo:   body.Settings.ReplyTo,
			BatchSize: body.Settings.BatchSize,
		},
		Status:    CampaignDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.engine.campaigns.Create(campaign); err != nil {
		http.Error(w, "Failed to create campaign", 500)
		return
	}

	writeJson(w, 201, campaign)
}

func (h *HttpHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, count, err := h.engine.campaigns.Matching(CampaignCriteria{Limit: 50})
	if err != nil {
		http.Error(w, "Failed to retrieve campaigns", 500)
		return
	}

	payload := struct {
		Data  []Campaign `json:"data"`
		Count int        `json:"count"`
	}{campaigns, count}

	writeJson(w, 200, payload)
}

func (h *HttpHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.loadCampaign(w, r)
	if !ok {
		return
	}

	followUps, err := h.engine.followUps.ByCampaign(campaign.Id)
	if err != nil {
		http.Error(w, "Failed to retrieve follow-ups", 500)
		return
	}

	count, err := h.engine.contacts.CountByCampaign(campaign.Id)
	if err != nil {
		http.Error(w, "Failed to count contacts", 500)
		return
	}

	payload := struct {
		Campaign      Campaign   `json:"campaign"`
		FollowUps     []FollowUp `json:"followUps"`
		ContactsCount int        `json:"contactsCount"`
	}{campaign, followUps, count}

	writeJson(w, 200, payload)
}

func (h *HttpHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.loadCampaign(w, r)
	if !ok {
		return
	}

	// Follow-ups, contacts, delivery log and pending jobs go with the
	// campaign; a job for a deleted campaign would be a no-op anyway.
	if err := h.engine.followUps.DeleteByCampaign(campaign.Id); err != nil {
		http.Error(w, "Failed to delete follow-ups", 500)
		return
	}
	if err := h.engine.contacts.DeleteByCampaign(campaign.Id); err != nil {
		http.Error(w, "Failed to delete contacts", 500)
		return
	}
	if err := h.engine.deliveries.DeleteByCampaign(campaign.Id); err != nil {
		http.Error(w, "Failed to delete delivery log", 500)
		return
	}
	if err := h.engine.jobs.DeleteByCampaign(campaign.Id); err != nil {
		http.Error(w, "Failed to delete pending jobs", 500)
		return
	}

	if err := h.engine.campaigns.Delete(campaign.Id); err != nil {
		http.Error(w, "Failed to delete campaign", 500)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HttpHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.loadCampaign(w, r); !ok {
		return
	}

	body := &internal.PreviewRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	fields := Fields(body.SampleFields)

	payload := struct {
		Subject string `json:"subject"`
		Html    string `json:"html"`
		Text    string `json:"text"`
	}{
		h.engine.render(body.Subject, fields),
		h.engine.render(body.Html, fields),
		h.engine.render(body.Text, fields),
	}

	writeJson(w, 200, payload)
}

func (h *HttpHandler) ImportContacts(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.loadCampaign(w, r)
	if !ok {
		return
	}

	body := &internal.ImportContactsRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	rows := make([]ImportRow, len(body.Rows))
	for i, row := range body.Rows {
		rows[i] = ImportRow{Email: row.Email, Fields: row.Fields}
	}

	summary, err := h.engine.ImportContacts(campaign.Id, rows, body.UpdateExisting)
	if err != nil {
		http.Error(w, "Failed to import contacts", 500)
		return
	}

	writeJson(w, 200, summary)
}

func (h *HttpHandler) SendCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.loadCampaign(w, r)
	if !ok {
		return
	}

	body := &internal.SendCampaignRequest{}
	if r.Body != nil {
		// Body is optional, a bare POST uses the campaign batch size.
		_ = json.NewDecoder(r.Body).Decode(body)
	}

	queued, err := h.engine.TriggerCampaign(campaign.Id, body.BatchSize)
	if err != nil {
		http.Error(w, "Failed to queue campaign batch", 500)
		return
	}

	payload := struct {
		Queued int `json:"queued"`
	}{queued}

	writeJson(w, 200, payload)
}

func (h *HttpHandler) MarkReplied(w http.ResponseWriter, r *http.Request) {
	h.updateContactStatus(w, r, ContactReplied)
}

func (h *HttpHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.updateContactStatus(w, r, ContactUnsubscribed)
}

func (h *HttpHandler) updateContactStatus(w http.ResponseWriter, r *http.Request, status ContactStatus) {
	campaignId := mux.Vars(r)["id"]
	contactId := mux.Vars(r)["contactId"]

	contact, err := h.engine.contacts.Get(contactId)
	if err == ContactNotFoundErr || (err == nil && contact.CampaignId != campaignId) {
		http.Error(w, "Contact not found", 404)
		return
	} else if err != nil {
		http.Error(w, "Failed to retrieve contact", 500)
		return
	}

	if err := h.engine.contacts.UpdateStatus(contact.Id, status); err != nil {
		http.Error(w, "Failed to update contact", 500)
		return
	}

	payload := struct {
		ContactId string        `json:"contactId"`
		Status    ContactStatus `json:"status"`
	}{contact.Id, status}

	writeJson(w, 200, payload)
}

func (h *HttpHandler) CreateFollowUp(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.loadCampaign(w, r)
	if !ok {
		return
	}

	body := &internal.CreateFollowUpRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	if body.Sequence == nil || *body.Sequence < 1 {
		http.Error(w, "Missing required field: sequence (integer >= 1)", 400)
		return
	}

	if _, err := h.engine.followUps.BySequence(campaign.Id, *body.Sequence); err == nil {
		http.Error(w, "A follow-up with this sequence already exists for the campaign", 400)
		return
	} else if err != FollowUpNotFoundErr {
		http.Error(w, "Failed to check sequence uniqueness", 500)
		return
	}

	now := h.engine.now()

	followUp := &FollowUp{
		Id:         uuid.New().String(),
		CampaignId: campaign.Id,
		Sequence:   *body.Sequence,
		Subject:    body.Subject,
		Html:       body.Html,
		Text:       body.Text,
		SendAt:     body.SendAt,
		Enabled:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if body.DelayMinutes != nil {
		followUp.DelayMinutes = *body.DelayMinutes
	} else {
		followUp.DelayMinutes = DefaultDelayMinutes
	}

	if body.Enabled != nil {
		followUp.Enabled = *body.Enabled
	}

	if err := h.engine.followUps.Create(followUp); err != nil {
		http.Error(w, "Failed to create follow-up", 500)
		return
	}

	writeJson(w, 201, followUp)
}

func (h *HttpHandler) ListFollowUps(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.loadCampaign(w, r)
	if !ok {
		return
	}

	followUps, err := h.engine.followUps.ByCampaign(campaign.Id)
	if err != nil {
		http.Error(w, "Failed to retrieve follow-ups", 500)
		return
	}

	payload := struct {
		Data []FollowUp `json:"data"`
	}{followUps}

	writeJson(w, 200, payload)
}

func (h *HttpHandler) UpdateFollowUp(w http.ResponseWriter, r *http.Request) {
	followUp, ok := h.loadFollowUp(w, r)
	if !ok {
		return
	}

	body := &internal.UpdateFollowUpRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	if body.Sequence != nil {
		followUp.Sequence = *body.Sequence
	}
	if body.Subject != nil {
		followUp.Subject = *body.Subject
	}
	if body.Html != nil {
		followUp.Html = *body.Html
	}
	if body.Text != nil {
		followUp.Text = *body.Text
	}
	if body.SendAt != nil {
		followUp.SendAt = body.SendAt
	}
	if body.DelayMinutes != nil {
		followUp.DelayMinutes = *body.DelayMinutes
	}
	if body.Enabled != nil {
		followUp.Enabled = *body.Enabled
	}

	followUp.UpdatedAt = h.engine.now()

	if err := h.engine.followUps.Update(&followUp); err != nil {
		http.Error(w, "Failed to update follow-up", 500)
		return
	}

	writeJson(w, 200, followUp)
}

func (h *HttpHandler) DeleteFollowUp(w http.ResponseWriter, r *http.Request) {
	followUp, ok := h.loadFollowUp(w, r)
	if !ok {
		return
	}

	if err := h.engine.followUps.Delete(followUp.Id); err != nil {
		http.Error(w, "Failed to delete follow-up", 500)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HttpHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.loadCampaign(w, r)
	if !ok {
		return
	}

	criteria := DeliveryCriteria{
		CampaignId: campaign.Id,
		ContactId:  r.URL.Query().Get("contactId"),
		Status:     DeliveryStatus(r.URL.Query().Get("status")),
		Limit:      100,
	}

	records, count, err := h.engine.deliveries.Matching(criteria)
	if err != nil {
		http.Error(w, "Failed to retrieve delivery log", 500)
		return
	}

	payload := struct {
		Data  []DeliveryRecord `json:"data"`
		Count int              `json:"count"`
	}{records, count}

	writeJson(w, 200, payload)
}

func (h *HttpHandler) loadCampaign(w http.ResponseWriter, r *http.Request) (Campaign, bool) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		http.Error(w, "Route id var", 400)
		return Campaign{}, false
	}

	campaign, err := h.engine.campaigns.Get(id)
	if err != nil {
		if err == CampaignNotFoundErr {
			http.Error(w, "Campaign not found", 404)
			return Campaign{}, false
		}

		http.Error(w, "Failed to retrieve campaign", 500)
		return Campaign{}, false
	}

	return campaign, true
}

func (h *HttpHandler) loadFollowUp(w http.ResponseWriter, r *http.Request) (FollowUp, bool) {
	campaignId := mux.Vars(r)["id"]
	fid := mux.Vars(r)["fid"]

	followUp, err := h.engine.followUps.Get(fid)
	if err == FollowUpNotFoundErr || (err == nil && followUp.CampaignId != campaignId) {
		http.Error(w, "Follow-up not found", 404)
		return FollowUp{}, false
	} else if err != nil {
		http.Error(w, "Failed to retrieve follow-up", 500)
		return FollowUp{}, false
	}

	return followUp, true
}

func writeJson(w http.ResponseWriter, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to convert to json", 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
