package api

import (
	"net/http"

	"SlackConnect/backend"
)

func (s *Server) HandleTeams(w http.ResponseWriter, r *http.Request) {
	resp, err := s.backend.Teams(r.Context())
	if err != nil {
		upstreamFailure(w, r, err, errFetchTeams)
		return
	}
	relay(w, resp)
}

func (s *Server) HandleRecipients(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("teamId")
	if msg := missingFields(field{"teamId", teamID != ""}); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	resp, err := s.backend.Recipients(r.Context(), teamID)
	if err != nil {
		upstreamFailure(w, r, err, errFetchRecipients)
		return
	}
	relay(w, resp)
}

func (s *Server) HandleMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := backend.MessagesQuery{ID: q.Get("id"), Type: q.Get("type"), TeamID: q.Get("teamId")}
	if msg := missingFields(field{"id", query.ID != ""}); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	resp, err := s.backend.Messages(r.Context(), query)
	if err != nil {
		upstreamFailure(w, r, err, errFetchMessages)
		return
	}
	relay(w, resp)
}

func (s *Server) HandleDirectMessage(w http.ResponseWriter, r *http.Request) {
	var req directMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := missingFields(
		field{"targetId", req.TargetID != ""},
		field{"message", req.Message != ""},
		field{"teamId", req.TeamID != ""},
	); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	resp, err := s.backend.Send(r.Context(), backend.SendRequest{
		TargetID: req.TargetID,
		Message:  req.Message,
		TeamID:   req.TeamID,
	})
	if err != nil {
		upstreamFailure(w, r, err, errSendMessage)
		return
	}
	relay(w, resp)
}

func (s *Server) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := missingFields(
		field{"targetId", req.TargetID != ""},
		field{"message", req.Message != ""},
		field{"time", truthy(req.Time)},
		field{"teamId", req.TeamID != ""},
	); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	resp, err := s.backend.Schedule(r.Context(), backend.ScheduleRequest{
		TargetID: req.TargetID,
		Message:  req.Message,
		Time:     req.Time,
		TeamID:   req.TeamID,
	})
	if err != nil {
		upstreamFailure(w, r, err, errScheduleMessage)
		return
	}
	relay(w, resp)
}

func (s *Server) HandleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	var req deleteScheduleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := missingFields(
		field{"scheduled_message_id", req.ScheduledMessageID != ""},
		field{"channelId", req.ChannelID != ""},
	); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	resp, err := s.backend.DeleteScheduled(r.Context(), backend.DeleteRequest{
		ScheduledMessageID: req.ScheduledMessageID,
		ChannelID:          req.ChannelID,
	})
	if err != nil {
		upstreamFailure(w, r, err, errDeleteScheduled)
		return
	}
	relay(w, resp)
}
