package server

import (
	"sync"

	"rssreader/search"

	log "github.com/sirupsen/logrus"
)

// Streams tracks the search streams of connected SSE clients
type Streams struct {
	sync.RWMutex
	clients map[string]*search.Stream
}

func NewStreams() *Streams {
	return &Streams{
		clients: make(map[string]*search.Stream),
	}
}

// Add registers a stream under its id
func (s *Streams) Add(stream *search.Stream) {
	s.Lock()
	defer s.Unlock()
	s.clients[stream.ID()] = stream
	log.WithFields(log.Fields{
		"key":   stream.ID(),
		"count": len(s.clients),
	}).Info("Adding search stream")
}

// Remove cancels the stream with key and forgets it. It reports whether the
// key was known.
func (s *Streams) Remove(key string) bool {
	s.Lock()
	defer s.Unlock()

	stream, ok := s.clients[key]
	if !ok {
		return false
	}
	stream.Cancel()
	delete(s.clients, key)

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(s.clients),
	}).Info("Removed search stream")
	return true
}

func (s *Streams) Count() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.clients)
}

// Shutdown cancels every open stream
func (s *Streams) Shutdown() {
	log.Info("Shutting down search streams")
	s.Lock()
	defer s.Unlock()
	for key, stream := range s.clients {
		stream.Cancel()
		delete(s.clients, key)
	}
}
