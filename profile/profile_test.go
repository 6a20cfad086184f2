package profile

import (
	"errors"
	"testing"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		years int
		want  entities.AgeGroup
	}{
		{-3, entities.AgeGroupPediatric},
		{0, entities.AgeGroupPediatric},
		{17, entities.AgeGroupPediatric},
		{18, entities.AgeGroupAdult},
		{64, entities.AgeGroupAdult},
		{65, entities.AgeGroupGeriatric},
		{120, entities.AgeGroupGeriatric},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyYears(tt.years), "age %d", tt.years)
	}
}

func TestClassifyText(t *testing.T) {
	group, err := Classify(" 65 ")
	require.NoError(t, err)
	assert.Equal(t, entities.AgeGroupGeriatric, group)

	for _, bad := range []string{"", "abc", "17.5", "17abc"} {
		_, err := Classify(bad)
		var verr *entities.ValidationError
		require.True(t, errors.As(err, &verr), "input %q", bad)
		assert.Equal(t, "age", verr.Field)
	}
}

func TestNewProfileIsEmpty(t *testing.T) {
	p := New()
	snap := p.Snapshot()

	assert.Empty(t, snap.Age)
	assert.Empty(t, snap.Weight)
	assert.Equal(t, entities.GenderUnset, snap.Gender)
	assert.Empty(t, snap.Conditions)

	_, ok := p.AgeGroup()
	assert.False(t, ok)
}

func TestSetAge(t *testing.T) {
	p := New()

	require.NoError(t, p.SetAge("42"))
	group, ok := p.AgeGroup()
	require.True(t, ok)
	assert.Equal(t, entities.AgeGroupAdult, group)

	for _, bad := range []string{"forty", "-1", "151", "3.5"} {
		err := p.SetAge(bad)
		var verr *entities.ValidationError
		assert.True(t, errors.As(err, &verr), "input %q", bad)
	}
	assert.Equal(t, "42", p.Snapshot().Age, "rejected input must keep the previous value")

	require.NoError(t, p.SetAge(""))
	_, ok = p.AgeGroup()
	assert.False(t, ok)
}

func TestSetWeight(t *testing.T) {
	p := New()

	require.NoError(t, p.SetWeight("72.5"))
	assert.Equal(t, "72.5", p.Snapshot().Weight)

	for _, bad := range []string{"heavy", "0", "-4", "701"} {
		assert.Error(t, p.SetWeight(bad), "input %q", bad)
	}
	assert.Equal(t, "72.5", p.Snapshot().Weight)

	require.NoError(t, p.SetWeight(" "))
	assert.Empty(t, p.Snapshot().Weight)
}

func TestSetGender(t *testing.T) {
	p := New()

	require.NoError(t, p.SetGender(entities.GenderFemale))
	assert.Equal(t, entities.GenderFemale, p.Snapshot().Gender)

	assert.Error(t, p.SetGender("robot"))
	assert.Equal(t, entities.GenderFemale, p.Snapshot().Gender)

	require.NoError(t, p.SetGender(entities.GenderUnset))
	assert.Equal(t, entities.GenderUnset, p.Snapshot().Gender)
}

func TestConditions(t *testing.T) {
	p := New()

	assert.True(t, p.AddCondition("Hypertension"))
	assert.True(t, p.AddCondition(" Diabetes "))
	assert.False(t, p.AddCondition("Hypertension"))
	assert.ErrorIs(t, p.InsertCondition("Diabetes"), entities.ErrDuplicateEntry)
	assert.Error(t, p.InsertCondition("   "))

	assert.Equal(t, []string{"Hypertension", "Diabetes"}, p.Snapshot().Conditions)

	assert.True(t, p.RemoveCondition("Hypertension"))
	assert.False(t, p.RemoveCondition("Hypertension"))
	assert.Equal(t, []string{"Diabetes"}, p.Snapshot().Conditions)
}

func TestAvailableConditions(t *testing.T) {
	p := New()
	p.AddCondition("Asthma")

	got := p.AvailableConditions([]string{"Hypertension", "Asthma", "Anxiety"})
	assert.Equal(t, []string{"Hypertension", "Anxiety"}, got)
}

func TestSnapshotIsCopy(t *testing.T) {
	p := New()
	p.AddCondition("Asthma")

	snap := p.Snapshot()
	snap.Conditions[0] = "Changed"

	assert.True(t, p.HasCondition("Asthma"))
}

func TestApplyIsAllOrNothing(t *testing.T) {
	p := New()
	age, weight := "70", "82.5"
	gender := entities.Gender("female")
	require.NoError(t, p.Apply(Update{Age: &age, Weight: &weight, Gender: &gender}))

	snap := p.Snapshot()
	assert.Equal(t, "70", snap.Age)
	assert.Equal(t, "82.5", snap.Weight)
	assert.Equal(t, gender, snap.Gender)

	newAge, badWeight := "30", "heavy"
	err := p.Apply(Update{Age: &newAge, Weight: &badWeight})
	var ve *entities.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "weight", ve.Field)
	assert.Equal(t, "70", p.Snapshot().Age, "age must not change when another field is rejected")

	require.NoError(t, p.Apply(Update{}))
	assert.Equal(t, snap, p.Snapshot())
}
