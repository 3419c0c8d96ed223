package validators

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slotRequest struct {
	Date  string `validate:"required,ymd"`
	Start string `validate:"required,hhmm"`
	Break string `validate:"hhmm"`
}

func TestCustomTags(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterOn(v))

	assert.NoError(t, v.Struct(slotRequest{Date: "2026-10-20", Start: "09:00"}))
	assert.NoError(t, v.Struct(slotRequest{Date: "2026-10-20", Start: "23:59", Break: "12:00"}))

	assert.Error(t, v.Struct(slotRequest{Date: "2026-13-01", Start: "09:00"}))
	assert.Error(t, v.Struct(slotRequest{Date: "20/10/2026", Start: "09:00"}))
	assert.Error(t, v.Struct(slotRequest{Date: "2026-10-20", Start: "9:00"}))
	assert.Error(t, v.Struct(slotRequest{Date: "2026-10-20", Start: "24:00"}))
	assert.Error(t, v.Struct(slotRequest{Date: "2026-10-20", Start: "09:00", Break: "noon"}))
}
