package game

// View is an immutable snapshot of a session pushed to observers
type View struct {
	Session      string            `json:"session"`
	Status       Status            `json:"status"`
	Fade         int               `json:"fade"`
	FadeCeiling  int               `json:"fadeCeiling"`
	Mode         string            `json:"mode"`
	Round        int               `json:"round"`
	RoundTicks   int               `json:"roundTicks"`
	Participants []ParticipantView `json:"participants"`
	Win          WinStatus         `json:"win"`
	Records      []RecordView      `json:"records"`
	Forced       int               `json:"forced"`
}

// ParticipantView is one participant in a View
type ParticipantView struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Role       RoleID   `json:"role,omitempty"`
	Faction    Faction  `json:"faction"`
	Dead       bool     `json:"dead"`
	Connected  bool     `json:"connected"`
	Location   Location `json:"location,omitempty"`
	CanSeeTime bool     `json:"canSeeTime"`
}

// RecordView is one round-end record in a View
type RecordView struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Role   RoleID    `json:"role"`
	Status EndStatus `json:"status"`
	Winner bool      `json:"winner"`
}

// View builds a snapshot. Role holders who disconnected are still listed.
func (m *Machine) View() View {
	s := m.ctx.Session
	w := m.ctx.World
	v := View{
		Session:     s.ID,
		Status:      s.Status,
		Fade:        s.Fade,
		FadeCeiling: m.ctx.Settings.FadeCeiling(),
		Mode:        s.Mode,
		Round:       s.Round,
		RoundTicks:  s.RoundTicks,
		Win:         s.Win,
		Forced:      s.Forced.Len(),
	}

	seen := make(map[ParticipantID]bool)
	add := func(id ParticipantID, name string) {
		if seen[id] {
			return
		}
		seen[id] = true
		role := s.RoleOf(id)
		pv := ParticipantView{
			ID:        id.String(),
			Name:      name,
			Faction:   role.Faction(),
			Dead:      s.IsDead(id),
			Connected: w.Connected(id),
		}
		if role != nil {
			pv.Role = role.ID
			pv.CanSeeTime = role.CanSeeTime
		}
		if pv.Connected {
			pv.Location = w.Location(id)
		}
		v.Participants = append(v.Participants, pv)
	}
	for _, p := range w.Participants() {
		add(p.ID, p.Name)
	}
	for _, id := range s.RoleHolders() {
		add(id, s.Name(id))
	}

	for _, r := range s.Records {
		v.Records = append(v.Records, RecordView{
			ID:     r.Participant.String(),
			Name:   r.Name,
			Role:   r.Role,
			Status: r.Status,
			Winner: r.Winner,
		})
	}
	return v
}
