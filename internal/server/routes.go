package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func addRoutes(r chi.Router, deps Deps) {
	deps.Health.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/chat", handleChat(deps.Director))
	r.Post("/api/tts", handleTTS(deps.TTS))
	r.Get("/api/tts/voices", handleVoices(deps.TTS))
	r.Post("/api/stt", handleSTT(deps.STT, deps.Metrics))
	r.Post("/api/roll", handleRoll())

	r.Route("/api/roster", func(r chi.Router) {
		r.Get("/", handleRosterList(deps.Roster))
		r.Put("/", handleRosterReplace(deps.Roster))
		r.Post("/", handleRosterAdd(deps.Roster, deps.StartingHealth))
		r.Get("/traits", handleTraits())
		r.Put("/{name}", handleRosterUpdate(deps.Roster))
		r.Delete("/{name}", handleRosterRemove(deps.Roster))
		r.Post("/{name}/health", handleRosterHealth(deps.Roster))
		r.Post("/{name}/challenge", handleRosterChallenge(deps.Roster))
	})

	r.Route("/api/turn", func(r chi.Router) {
		r.Get("/", handleTurnState(deps.Turns))
		r.Post("/advance", handleTurnAdvance(deps.Turns))
		r.Post("/new-round", handleTurnNewRound(deps.Director, deps.Turns))
		r.Post("/current", handleTurnSetCurrent(deps.Turns))
	})

	r.Route("/api/transcript", func(r chi.Router) {
		r.Get("/", handleTranscriptList(deps.Transcript))
		r.Post("/", handleTranscriptAppend(deps.Director, deps.Transcript, deps.Turns))
		r.Delete("/", handleTranscriptClear(deps.Transcript))
		r.Get("/stats", handleTranscriptStats(deps.Transcript))
		r.Get("/export", handleTranscriptExport(deps.Transcript))
		r.Get("/sessions", handleTranscriptSessions(deps.Transcript))
		r.Patch("/{id}", handleTranscriptEdit(deps.Transcript))
		r.Delete("/{id}", handleTranscriptRemove(deps.Transcript))
	})

	r.Route("/api/game", func(r chi.Router) {
		r.Get("/status", handleGameStatus(deps.Director))
		r.Get("/progress", handleGameProgress(deps.Director))
		r.Post("/reset", handleGameReset(deps.Director))
		r.Get("/language", handleLanguageGet(deps.Director))
		r.Put("/language", handleLanguageSet(deps.Director))
	})
}
