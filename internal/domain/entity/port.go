package entity

import "sort"

// PortNumber номер физического порта на проверяемом устройстве
type PortNumber int

const (
	MinPort   PortNumber = 1
	MaxPort   PortNumber = 8
	PortCount            = int(MaxPort - MinPort + 1)
)

// Valid проверяет, что номер порта попадает в диапазон [1, 8]
func (p PortNumber) Valid() bool {
	return p >= MinPort && p <= MaxPort
}

// AllPorts возвращает все порты по возрастанию
func AllPorts() []PortNumber {
	ports := make([]PortNumber, 0, PortCount)
	for p := MinPort; p <= MaxPort; p++ {
		ports = append(ports, p)
	}
	return ports
}

// PortVerdict статус подключения порта
type PortVerdict string

const (
	StatusConnected    PortVerdict = "connected"
	StatusNotConnected PortVerdict = "not connected"
)

// PortTable вердикты по всем восьми портам.
// Таблица, созданная через NewPortTable, всегда содержит ровно порты 1..8.
type PortTable map[PortNumber]PortVerdict

// NewPortTable создаёт таблицу, где все порты не подключены
func NewPortTable() PortTable {
	t := make(PortTable, PortCount)
	for _, p := range AllPorts() {
		t[p] = StatusNotConnected
	}
	return t
}

// Status возвращает статус порта; отсутствующий порт считается не подключённым
func (t PortTable) Status(p PortNumber) PortVerdict {
	if v, ok := t[p]; ok && v == StatusConnected {
		return StatusConnected
	}
	return StatusNotConnected
}

// MarkConnected отмечает порт подключённым. Порты вне диапазона игнорируются.
func (t PortTable) MarkConnected(p PortNumber) bool {
	if !p.Valid() {
		return false
	}
	t[p] = StatusConnected
	return true
}

// ConnectedPorts возвращает подключённые порты по возрастанию
func (t PortTable) ConnectedPorts() []PortNumber {
	ports := make([]PortNumber, 0, PortCount)
	for p, v := range t {
		if p.Valid() && v == StatusConnected {
			ports = append(ports, p)
		}
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports
}

// Report превращает таблицу во внешний отчёт: ровно 8 записей, порты 1..8 по порядку.
func (t PortTable) Report() PortReport {
	report := make(PortReport, 0, PortCount)
	for _, p := range AllPorts() {
		report = append(report, PortStatus{PortNumber: int(p), Status: t.Status(p)})
	}
	return report
}

// PortStatus одна запись отчёта
type PortStatus struct {
	PortNumber int         `json:"port_number"`
	Status     PortVerdict `json:"status"`
}

// PortReport упорядоченный список статусов портов
type PortReport []PortStatus

// Table восстанавливает таблицу из отчёта (например, прочитанного из хранилища).
func (r PortReport) Table() PortTable {
	t := NewPortTable()
	for _, s := range r {
		if s.Status == StatusConnected {
			t.MarkConnected(PortNumber(s.PortNumber))
		}
	}
	return t
}
