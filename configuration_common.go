package webrtc

// getICEServers flattens every configured ICEServer's URLs into the
// parsed form the ICE agent needs for STUN requests.
func (c Configuration) getICEServers() (*[]*ICEURL, error) {
	var iceServers []*ICEURL
	for _, server := range c.ICEServers {
		urls, err := server.urls()
		if err != nil {
			return nil, err
		}
		iceServers = append(iceServers, urls...)
	}
	return &iceServers, nil
}
