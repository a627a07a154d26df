package drip

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

func TestHttpHandler(t *testing.T) {
	suite.Run(t, new(httpTestSuite))
}

type httpTestSuite struct {
	suite.Suite

	campaigns  *campaignRepo
	contacts   *contactRepo
	followUps  *followUpRepo
	deliveries *deliveryRepo
	jobs       *jobRepo

	server *httptest.Server
}

func (suite *httpTestSuite) SetupTest() {
	suite.campaigns = &campaignRepo{campaigns: map[string]Campaign{}}
	suite.contacts = &contactRepo{contacts: map[string]*Contact{}}
	suite.followUps = &followUpRepo{}
	suite.deliveries = &deliveryRepo{}
	suite.jobs = &jobRepo{jobs: map[string]*SendJob{}}

	eng, err := NewEngine(
		SetCampaignRepo(suite.campaigns),
		SetContactRepo(suite.contacts),
		SetFollowUpRepo(suite.followUps),
		SetDeliveryLogRepo(suite.deliveries),
		SetJobRepo(suite.jobs),
		SetTransport(&fakeTransport{nextId: "<m1>"}),
	)

	suite.Require().NoError(err)

	suite.server = httptest.NewServer(eng.HttpHandler().Router())
}

func (suite *httpTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *httpTestSuite) post(path string, payload interface{}) *http.Response {
	body, err := json.Marshal(payload)
	suite.Require().NoError(err)

	resp, err := http.Post(suite.server.URL+path, "application/json", bytes.NewReader(body))
	suite.Require().NoError(err)

	return resp
}

func (suite *httpTestSuite) decode(resp *http.Response, target interface{}) {
	defer resp.Body.Close()
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(target))
}

func (suite *httpTestSuite) createCampaign() Campaign {
	campaign := Campaign{
		Id:   uuid.New().String(),
		Name: "launch",
		MainTemplate: Template{
			Subject: "Hi {{first_name}}",
		},
		Status: CampaignDraft,
	}

	suite.Require().NoError(suite.campaigns.Create(&campaign))

	return campaign
}

func (suite *httpTestSuite) TestCreateCampaign() {
	resp := suite.post("/campaigns", map[string]interface{}{
		"name": "launch",
		"mainTemplate": map[string]string{
			"subject": "Hi {{first_name}}",
			"html":    "<p>Hello</p>",
		},
		"settings": map[string]interface{}{
			"fromEmail": "sender@campaign.test",
			"batchSize": 25,
		},
	})

	suite.Equal(201, resp.StatusCode)

	var campaign Campaign
	suite.decode(resp, &campaign)

	suite.NotEmpty(campaign.Id)
	suite.Equal(CampaignDraft, campaign.Status)
	suite.Equal("Hi {{first_name}}", campaign.MainTemplate.Subject)
	suite.Equal(25, campaign.Settings.BatchSize)
}

func (suite *httpTestSuite) TestCreateCampaignValidation() {
	resp := suite.post("/campaigns", map[string]interface{}{
		"name": "launch",
	})

	suite.Equal(400, resp.StatusCode, "a campaign without a main subject is rejected")
}

func (suite *httpTestSuite) TestGetCampaignNotFound() {
	resp, err := http.Get(suite.server.URL + "/campaigns/missing")
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal(404, resp.StatusCode)
}

func (suite *httpTestSuite) TestCreateFollowUpValidation() {
	campaign := suite.createCampaign()

	resp := suite.post("/campaigns/"+campaign.Id+"/followups", map[string]interface{}{
		"subject": "Still there?",
	})
	suite.Equal(400, resp.StatusCode, "sequence is required")

	resp = suite.post("/campaigns/"+campaign.Id+"/followups", map[string]interface{}{
		"sequence": 0,
	})
	suite.Equal(400, resp.StatusCode, "sequence 0 is reserved for the main template")
}

func (suite *httpTestSuite) TestCreateFollowUpRejectsDuplicateSequence() {
	campaign := suite.createCampaign()

	resp := suite.post("/campaigns/"+campaign.Id+"/followups", map[string]interface{}{
		"sequence":     1,
		"delayMinutes": 60,
	})
	suite.Equal(201, resp.StatusCode)

	var followUp FollowUp
	suite.decode(resp, &followUp)
	suite.Equal(1, followUp.Sequence)
	suite.Equal(60, followUp.DelayMinutes)
	suite.True(followUp.Enabled)

	resp = suite.post("/campaigns/"+campaign.Id+"/followups", map[string]interface{}{
		"sequence": 1,
	})
	suite.Equal(400, resp.StatusCode)
}

func (suite *httpTestSuite) TestCreateFollowUpDefaultsDelay() {
	campaign := suite.createCampaign()

	resp := suite.post("/campaigns/"+campaign.Id+"/followups", map[string]interface{}{
		"sequence": 1,
	})
	suite.Equal(201, resp.StatusCode)

	var followUp FollowUp
	suite.decode(resp, &followUp)
	suite.Equal(DefaultDelayMinutes, followUp.DelayMinutes)
}

func (suite *httpTestSuite) TestSendCampaignQueuesBatch() {
	campaign := suite.createCampaign()

	for i := 0; i < 3; i++ {
		contact := Contact{
			Id:         uuid.New().String(),
			CampaignId: campaign.Id,
			Email:      uuid.New().String() + "@example.com",
			Status:     ContactPending,
			CreatedAt:  time.Now().Add(time.Duration(i) * time.Second),
		}

		_, err := suite.contacts.Upsert(&contact)
		suite.Require().NoError(err)
	}

	resp := suite.post("/campaigns/"+campaign.Id+"/send", map[string]interface{}{
		"batchSize": 2,
	})
	suite.Equal(200, resp.StatusCode)

	var payload struct {
		Queued int `json:"queued"`
	}
	suite.decode(resp, &payload)
	suite.Equal(2, payload.Queued)

	suite.Len(suite.jobs.all(), 2)

	campaignAfter, err := suite.campaigns.Get(campaign.Id)
	suite.NoError(err)
	suite.Equal(CampaignRunning, campaignAfter.Status)
}

func (suite *httpTestSuite) TestMarkRepliedAndUnsubscribe() {
	campaign := suite.createCampaign()

	contact := Contact{
		Id:         uuid.New().String(),
		CampaignId: campaign.Id,
		Email:      "ana@example.com",
		Status:     ContactSent,
	}
	_, err := suite.contacts.Upsert(&contact)
	suite.Require().NoError(err)

	resp := suite.post("/campaigns/"+campaign.Id+"/contacts/"+contact.Id+"/mark-replied", nil)
	suite.Equal(200, resp.StatusCode)

	reloaded, err := suite.contacts.Get(contact.Id)
	suite.NoError(err)
	suite.Equal(ContactReplied, reloaded.Status)

	resp = suite.post("/campaigns/"+campaign.Id+"/contacts/"+contact.Id+"/unsubscribe", nil)
	suite.Equal(200, resp.StatusCode)

	reloaded, err = suite.contacts.Get(contact.Id)
	suite.NoError(err)
	suite.Equal(ContactUnsubscribed, reloaded.Status)
}

func (suite *httpTestSuite) TestMarkRepliedAcrossCampaigns() {
	campaign := suite.createCampaign()
	other := Campaign{Id: uuid.New().String(), Name: "other"}
	suite.Require().NoError(suite.campaigns.Create(&other))

	contact := Contact{
		Id:         uuid.New().String(),
		CampaignId: campaign.Id,
		Email:      "ana@example.com",
		Status:     ContactSent,
	}
	_, err := suite.contacts.Upsert(&contact)
	suite.Require().NoError(err)

	resp := suite.post("/campaigns/"+other.Id+"/contacts/"+contact.Id+"/mark-replied", nil)
	suite.Equal(404, resp.StatusCode, "a contact is only addressable through its own campaign")
}

func (suite *httpTestSuite) TestImportContacts() {
	campaign := suite.createCampaign()

	resp := suite.post("/campaigns/"+campaign.Id+"/contacts/import", map[string]interface{}{
		"rows": []map[string]interface{}{
			{"email": "ana@example.com", "fields": map[string]string{"first_name": "Ana"}},
			{"email": "bogus"},
		},
	})
	suite.Equal(200, resp.StatusCode)

	var summary ImportSummary
	suite.decode(resp, &summary)
	suite.Equal(2, summary.Total)
	suite.Equal(1, summary.Inserted)
	suite.Equal(1, summary.Skipped)
}

func (suite *httpTestSuite) TestPreview() {
	campaign := suite.createCampaign()

	resp := suite.post("/campaigns/"+campaign.Id+"/preview", map[string]interface{}{
		"subject":      "Hi {{first_name}}",
		"text":         "Hello {{first_name}} from {{company}}",
		"sampleFields": map[string]string{"first_name": "Ana", "company": "Acme"},
	})
	suite.Equal(200, resp.StatusCode)

	var payload struct {
		Subject string `json:"subject"`
		Text    string `json:"text"`
	}
	suite.decode(resp, &payload)
	suite.Equal("Hi Ana", payload.Subject)
	suite.Equal("Hello Ana from Acme", payload.Text)
}

func (suite *httpTestSuite) TestDeleteCampaignCascades() {
	campaign := suite.createCampaign()

	contact := Contact{
		Id:         uuid.New().String(),
		CampaignId: campaign.Id,
		Email:      "ana@example.com",
		Status:     ContactPending,
	}
	_, err := suite.contacts.Upsert(&contact)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.followUps.Create(&FollowUp{
		Id:         uuid.New().String(),
		CampaignId: campaign.Id,
		Sequence:   1,
		Enabled:    true,
	}))

	suite.Require().NoError(suite.jobs.Create(&SendJob{
		Id:         uuid.New().String(),
		CampaignId: campaign.Id,
		ContactId:  contact.Id,
	}))

	req, err := http.NewRequest(http.MethodDelete, suite.server.URL+"/campaigns/"+campaign.Id, nil)
	suite.Require().NoError(err)

	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal(204, resp.StatusCode)

	_, err = suite.campaigns.Get(campaign.Id)
	suite.Equal(CampaignNotFoundErr, err)

	count, err := suite.contacts.CountByCampaign(campaign.Id)
	suite.NoError(err)
	suite.Equal(0, count)

	followUps, err := suite.followUps.ByCampaign(campaign.Id)
	suite.NoError(err)
	suite.Empty(followUps)

	suite.Empty(suite.jobs.all())
}
