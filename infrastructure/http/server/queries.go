package server

import (
	"net/http"
	"time"
	"tutor-realtime/domain"

	"github.com/gorilla/mux"
)

// Queries answer for this process only: a user connected to another
// instance is reported offline here.

type onlineUsersResponse struct {
	OnlineUsers []domain.UserID `json:"online_users"`
	Count       int             `json:"count"`
}

type onlineMembersResponse struct {
	ChannelID     domain.ChannelID `json:"channel_id"`
	OnlineMembers []domain.UserID  `json:"online_members"`
	Count         int              `json:"count"`
}

type userStatusResponse struct {
	UserID   domain.UserID `json:"user_id"`
	IsOnline bool          `json:"is_online"`
	LastSeen *time.Time    `json:"last_seen"`
}

func (s *Server) handleOnlineUsers(w http.ResponseWriter, _ *http.Request) {
	users := s.hub.OnlineUsers()
	if users == nil {
		users = []domain.UserID{}
	}
	writeJSON(w, http.StatusOK, onlineUsersResponse{OnlineUsers: users, Count: len(users)})
}

func (s *Server) handleOnlineMembers(w http.ResponseWriter, r *http.Request) {
	channelID := domain.ChannelID(mux.Vars(r)["channel_id"])
	members := s.hub.OnlineMembers(channelID)
	if members == nil {
		members = []domain.UserID{}
	}
	writeJSON(w, http.StatusOK, onlineMembersResponse{
		ChannelID:     channelID,
		OnlineMembers: members,
		Count:         len(members),
	})
}

func (s *Server) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	presence := s.hub.Status(domain.UserID(mux.Vars(r)["user_id"]))
	writeJSON(w, http.StatusOK, userStatusResponse{
		UserID:   presence.UserID,
		IsOnline: presence.IsOnline,
		LastSeen: presence.LastSeen,
	})
}
