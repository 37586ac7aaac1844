package hap

import (
	"encoding/json"
	"testing"

	"github.com/ivucica/go-hap/accessory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccessory(t *testing.T) *accessory.Accessory {
	t.Helper()
	a := accessory.NewAccessory(accessory.Info{
		Name: "Lamp", Manufacturer: "Acme", Model: "L1", SerialNumber: "1", FirmwareRevision: "1.0",
	}, accessory.CategoryLightbulb)
	svc := accessory.NewService(accessory.NewBaseTypeID("43"))
	onChar := accessory.NewCharacteristic(accessory.NewBaseTypeID("25"), accessory.FormatBool, accessory.PermRead, accessory.PermWrite, accessory.PermNotify)
	svc.AddCharacteristic(onChar)
	a.AddService(svc)
	return a
}

func TestHandleGetAccessories(t *testing.T) {
	a := testAccessory(t)
	body, err := HandleGetAccessories(a)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &doc))
	accs := doc["accessories"].([]interface{})
	require.Len(t, accs, 1)
}

func TestParseIDList(t *testing.T) {
	ids, err := ParseIDList("1.2,1.3,2.4")
	require.NoError(t, err)
	assert.Equal(t, []AIDIID{{1, 2}, {1, 3}, {2, 4}}, ids)

	_, err = ParseIDList("bad")
	assert.Error(t, err)
}

func TestHandleGetCharacteristicsMixedStatus(t *testing.T) {
	a := testAccessory(t)
	onChar, _ := a.Services()[0].Characteristic(accessory.NewBaseTypeID("25"))

	ids := []AIDIID{{AID: a.AID(), IID: onChar.IID()}, {AID: 99, IID: 99}}
	body, status, err := HandleGetCharacteristics(a, ids, accessory.AllCharOptions)
	require.NoError(t, err)
	assert.Equal(t, 207, status)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &doc))
	entries := doc["characteristics"].([]interface{})
	require.Len(t, entries, 2)
}

type fakeSubscriber struct {
	subscribed map[string]bool
}

func (f *fakeSubscriber) Subscribe(aid, iid uint64) {
	if f.subscribed == nil {
		f.subscribed = map[string]bool{}
	}
	f.subscribed[key(aid, iid)] = true
}
func (f *fakeSubscriber) Unsubscribe(aid, iid uint64) {
	delete(f.subscribed, key(aid, iid))
}
func key(aid, iid uint64) string {
	return string(rune(aid)) + "." + string(rune(iid))
}

func TestHandlePutCharacteristicsSetsValueAndSubscribes(t *testing.T) {
	a := testAccessory(t)
	onChar, _ := a.Services()[0].Characteristic(accessory.NewBaseTypeID("25"))
	sub := &fakeSubscriber{}
	prepared := NewPreparedWrites()

	evTrue := true
	body, _ := json.Marshal(map[string]interface{}{
		"characteristics": []map[string]interface{}{
			{"aid": a.AID(), "iid": onChar.IID(), "value": true, "ev": evTrue},
		},
	})

	resp, status, err := HandlePutCharacteristics(a, sub, prepared, body, nil)
	require.NoError(t, err)
	assert.Equal(t, 204, status)
	assert.Nil(t, resp)
	assert.Equal(t, true, onChar.Value())
	assert.True(t, sub.subscribed[key(a.AID(), onChar.IID())])
}

func TestHandlePutCharacteristicsUnknownTargetReturns207(t *testing.T) {
	a := testAccessory(t)
	sub := &fakeSubscriber{}
	prepared := NewPreparedWrites()

	body, _ := json.Marshal(map[string]interface{}{
		"characteristics": []map[string]interface{}{
			{"aid": 999, "iid": 999, "value": true},
		},
	})

	_, status, err := HandlePutCharacteristics(a, sub, prepared, body, nil)
	require.NoError(t, err)
	assert.Equal(t, 207, status)
}

func TestPrepareThenConsumeOneShot(t *testing.T) {
	p := NewPreparedWrites()
	body, _ := json.Marshal(map[string]interface{}{"pid": 1, "ttl": 5000})
	respBody, err := p.HandlePrepare(body)
	require.NoError(t, err)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(respBody, &resp))
	assert.Equal(t, 0, resp["status"])

	assert.True(t, p.Consume(1))
	assert.False(t, p.Consume(1)) // one-shot
}

func TestPrepareRejectsNonPositiveTTL(t *testing.T) {
	p := NewPreparedWrites()
	body, _ := json.Marshal(map[string]interface{}{"pid": 1, "ttl": 0})
	respBody, err := p.HandlePrepare(body)
	require.NoError(t, err)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(respBody, &resp))
	assert.Equal(t, StatusInvalidValue, resp["status"])
}
