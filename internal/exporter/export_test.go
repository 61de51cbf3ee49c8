package exporter

// CloseListener releases the socket of a server that never ran.
func (s *Server) CloseListener() error {
	return s.listener.Close()
}
