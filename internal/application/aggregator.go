package app

import "port-vision/internal/domain/entity"

// VoteTally голоса моделей по одному порту
type VoteTally struct {
	Connected    int
	NotConnected int
}

// TallyVotes считает голоса моделей по каждому порту 1..8.
func TallyVotes(tables ...entity.PortTable) map[entity.PortNumber]VoteTally {
	tally := make(map[entity.PortNumber]VoteTally, entity.PortCount)
	for _, p := range entity.AllPorts() {
		var v VoteTally
		for _, t := range tables {
			if t.Status(p) == entity.StatusConnected {
				v.Connected++
			} else {
				v.NotConnected++
			}
		}
		tally[p] = v
	}
	return tally
}

// AggregatePorts объединяет таблицы моделей по правилу ИЛИ:
// порт подключён, если хотя бы одна модель считает его подключённым.
// Голоса "not connected" на результат не влияют.
func AggregatePorts(tables ...entity.PortTable) entity.PortTable {
	final := entity.NewPortTable()
	for p, v := range TallyVotes(tables...) {
		if v.Connected > 0 {
			final.MarkConnected(p)
		}
	}
	return final
}
