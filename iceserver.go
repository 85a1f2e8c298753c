package webrtc

// ICEServer describes a single STUN and TURN server that can be used by
// the ICEAgent to establish a connection with a peer.
type ICEServer struct {
	URLs           []string
	Username       string
	Credential     interface{}
	CredentialType ICECredentialType
}

func (s ICEServer) parseURL(i int) (*ICEURL, error) {
	return parseICEURL(s.URLs[i])
}

func (s ICEServer) validate() error {
	_, err := s.urls()
	return err
}

func (s ICEServer) urls() ([]*ICEURL, error) {
	urls := []*ICEURL{}

	for i := range s.URLs {
		url, err := s.parseURL(i)
		if err != nil {
			return nil, err
		}

		if url.Scheme == ICESchemeTypeTURN || url.Scheme == ICESchemeTypeTURNS {
			// https://www.w3.org/TR/webrtc/#set-the-configuration (step #11.3.2)
			if s.Username == "" || s.Credential == nil {
				return nil, wrapInvalidAccess(ErrNoTurnCredentials)
			}
			url.Username = s.Username

			switch s.CredentialType {
			case ICECredentialTypePassword:
				// https://www.w3.org/TR/webrtc/#set-the-configuration (step #11.3.3)
				password, ok := s.Credential.(string)
				if !ok {
					return nil, wrapInvalidAccess(ErrTurnCredentials)
				}
				url.Password = password

			case ICECredentialTypeOauth:
				// https://www.w3.org/TR/webrtc/#set-the-configuration (step #11.3.4)
				if _, ok := s.Credential.(OAuthCredential); !ok {
					return nil, wrapInvalidAccess(ErrTurnCredentials)
				}

			default:
				return nil, wrapInvalidAccess(ErrTurnCredentials)
			}
		}

		urls = append(urls, url)
	}

	return urls, nil
}

// OAuthCredential represents a token-based credential for a TURN server,
// https://tools.ietf.org/html/rfc7635.
type OAuthCredential struct {
	MACKey      string
	AccessToken string
}
