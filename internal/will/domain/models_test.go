package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	all := []Status{StatusDraft, StatusSentForApproval, StatusSigned}
	allowed := map[[2]Status]bool{
		{StatusDraft, StatusSentForApproval}:  true,
		{StatusSentForApproval, StatusSigned}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestEditable(t *testing.T) {
	assert.True(t, StatusDraft.Editable())
	assert.False(t, StatusSentForApproval.Editable())
	assert.False(t, StatusSigned.Editable())
	assert.False(t, Status("archived").Editable())
}

func TestUpdateApply(t *testing.T) {
	base := fullPayload()
	executors := []Executor{{FullName: "Only One"}}
	req := UpdateWillRequest{
		Executors: &executors,
		Residue:   &Residue{DistributionType: "Per stirpes"},
	}

	out := req.Apply(base)
	assert.Equal(t, base.PersonalInfo, out.PersonalInfo)
	assert.Equal(t, executors, out.Executors)
	assert.Equal(t, "Per stirpes", out.Residue.DistributionType)
	assert.Equal(t, []string{"executors", "residue"}, req.Fields())

	empty := []Executor{}
	cleared := UpdateWillRequest{Executors: &empty}.Apply(base)
	assert.Empty(t, cleared.Executors)
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, fullPayload().Canonical(), fullPayload().Canonical())

	changed := fullPayload()
	changed.Beneficiaries[0].Share = 60
	assert.NotEqual(t, fullPayload().Canonical(), changed.Canonical())
	assert.Equal(t, "{}", string(Payload{}.Canonical()))
}

func TestMissingForApproval(t *testing.T) {
	assert.Empty(t, fullPayload().MissingForApproval())
	assert.Equal(t, []string{
		"json_payload.personal_info.full_name",
		"json_payload.executors",
		"json_payload.beneficiaries",
	}, Payload{}.MissingForApproval())
	blank := fullPayload()
	blank.PersonalInfo.FullName = "   "
	assert.Equal(t, []string{"json_payload.personal_info.full_name"}, blank.MissingForApproval())
	assert.True(t, Payload{}.IsEmpty())
	assert.False(t, fullPayload().IsEmpty())
	assert.Equal(t, 100.0, fullPayload().TotalShare())
}
