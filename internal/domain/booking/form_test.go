package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewForm_FormatsDateAndRange(t *testing.T) {
	slot := TimeSlot{
		Start: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
	}
	f := NewForm(slot, time.UTC)
	assert.Equal(t, "10. January 2024", f.ChosenDate)
	assert.Equal(t, "9:00am to 10:00am", f.ChosenTime)
	assert.Equal(t, "Book it", f.SubmitText)
	assert.Equal(t, "Wait..", f.LoadingText)
}

func TestNewForm_MachineValuesParseBackToSlot(t *testing.T) {
	loc := time.FixedZone("viewer", 2*3600)
	slot := TimeSlot{
		Start: time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 1, 15, 15, 0, 0, time.UTC),
	}
	f := NewForm(slot, loc)

	start, err := time.Parse(time.RFC3339, f.Start)
	require.NoError(t, err)
	end, err := time.Parse(time.RFC3339, f.End)
	require.NoError(t, err)
	assert.True(t, start.Equal(slot.Start))
	assert.True(t, end.Equal(slot.End))
	assert.Equal(t, "4:30pm to 5:15pm", f.ChosenTime)
}

func TestTimeSlotValidate(t *testing.T) {
	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	assert.NoError(t, TimeSlot{Start: at, End: at.Add(time.Hour)}.Validate())
	assert.Error(t, TimeSlot{Start: at, End: at}.Validate())
	assert.Error(t, TimeSlot{Start: at.Add(time.Hour), End: at}.Validate())
	assert.Error(t, TimeSlot{}.Validate())
}

func TestFormValuesClone(t *testing.T) {
	v := FormValues{"name": "Alice"}
	c := v.Clone()
	c["name"] = "Bob"
	assert.Equal(t, "Alice", v["name"])
	assert.Nil(t, FormValues(nil).Clone())
}
