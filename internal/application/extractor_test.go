package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"port-vision/internal/domain/entity"
)

func detections(labels ...string) *entity.DetectionResult {
	res := &entity.DetectionResult{Model: "test"}
	for _, l := range labels {
		res.Detections = append(res.Detections, entity.Detection{Label: l, Score: 0.5})
	}
	return res
}

func TestLabelParser_Parse(t *testing.T) {
	cases := []struct {
		label     string
		ok        bool
		port      entity.PortNumber
		connected bool
	}{
		{label: "Port3_connected", ok: true, port: 3, connected: true},
		{label: "Port3_n_connected", ok: true, port: 3, connected: true},
		{label: "port_7_not_connected", ok: true, port: 7, connected: true},
		{label: "PORT2_CONNECTED", ok: true, port: 2, connected: true},
		{label: "connected_port", ok: false},
		{label: "Port5_unknown", ok: false},
		{label: "Port9_connected", ok: false},
		{label: "Port0_connected", ok: false},
		{label: "Port12_connected", ok: false},
		{label: "", ok: false},
		{label: "p4c1_connected", ok: true, port: 4, connected: true},
		{label: "Port99999999999999999999_connected", ok: false},
		{label: "Port٣_connected", ok: false},
		{label: "Port٣_4_connected", ok: true, port: 4, connected: true},
	}

	var p LabelParser
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			vote, ok := p.Parse(tc.label)
			require.Equal(t, tc.ok, ok)
			if !tc.ok {
				return
			}
			require.Equal(t, tc.port, vote.Port)
			require.Equal(t, tc.connected, vote.Connected())
		})
	}
}

func TestLabelParser_StrictPolarity(t *testing.T) {
	p := LabelParser{StrictPolarity: true}

	vote, ok := p.Parse("Port3_n_connected")
	require.True(t, ok)
	require.Equal(t, entity.PortNumber(3), vote.Port)
	require.False(t, vote.Connected())

	vote, ok = p.Parse("Port4_not_connected")
	require.True(t, ok)
	require.False(t, vote.Connected())

	vote, ok = p.Parse("Port4_Connected")
	require.True(t, ok)
	require.True(t, vote.Connected())
}

func TestExtractPorts_AlwaysEightPorts(t *testing.T) {
	for _, res := range []*entity.DetectionResult{
		nil,
		detections(),
		detections("garbage", "Port42_connected", "Port1_connected"),
	} {
		table := ExtractPorts(res, LabelParser{})
		require.Len(t, table, entity.PortCount)
		for _, p := range entity.AllPorts() {
			require.Contains(t, []entity.PortVerdict{entity.StatusConnected, entity.StatusNotConnected}, table[p])
		}
	}
}

func TestExtractPorts_Votes(t *testing.T) {
	table := ExtractPorts(detections("Port3_connected", "Port5_unknown", "connected_port"), LabelParser{})
	require.Equal(t, []entity.PortNumber{3}, table.ConnectedPorts())
}

func TestExtractPorts_NegativeLabelConnectsByDefault(t *testing.T) {
	table := ExtractPorts(detections("Port3_n_connected"), LabelParser{})
	require.Equal(t, entity.StatusConnected, table[3])

	table = ExtractPorts(detections("Port3_n_connected"), LabelParser{StrictPolarity: true})
	require.Equal(t, entity.StatusNotConnected, table[3])
}

func TestExtractPorts_ScoreIgnored(t *testing.T) {
	res := &entity.DetectionResult{Detections: []entity.Detection{
		{Label: "Port6_connected", Score: 0.001},
	}}
	table := ExtractPorts(res, LabelParser{})
	require.Equal(t, entity.StatusConnected, table[6])
}

func TestExtractPorts_NegativeNeverOverridesConnected(t *testing.T) {
	table := ExtractPorts(detections("Port2_connected", "Port2_n_connected"), LabelParser{StrictPolarity: true})
	require.Equal(t, entity.StatusConnected, table[2])
}
