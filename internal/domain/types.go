package domain

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

func (k X25519Private) Slice() []byte { return k[:] }

// KeyPair holds a party's long-term identity keys. Created once per account;
// the private half never leaves the local store.
type KeyPair struct {
	Public  X25519Public
	Private X25519Private
}

// PeerKeyBundle is the minimum public material needed to start a session with
// a peer, fetched from the directory collaborator.
type PeerKeyBundle struct {
	IdentityKey X25519Public
}

// Role is the symmetry-breaking label assigned to each side of a session so
// both parties agree which directional key is for sending.
type Role uint8

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Opposite returns the peer's role.
func (r Role) Opposite() Role {
	if r == RoleClient {
		return RoleServer
	}
	return RoleClient
}

// SessionKeys is the output of the key exchange. For two parties running the
// exchange against each other, A.TX equals B.RX bit for bit and vice versa.
// Ephemeral: consumed by ratchet initialisation and zeroed.
type SessionKeys struct {
	TX   []byte // 32 bytes, our sending direction
	RX   []byte // 32 bytes, our receiving direction
	Role Role
}

// RatchetState is the mutable cryptographic state for one peer relationship.
// Exactly one exists per relationship; it is the single source of truth for
// that relationship's forward-secrecy position.
//
// Chain keys are mirrored: at any message index, one party's sending chain
// derives the same message key as the other party's receiving chain.
type RatchetState struct {
	Role    Role   `json:"role"`
	RootKey []byte `json:"root_key"`

	SendChainKey []byte `json:"send_chain_key"`
	RecvChainKey []byte `json:"recv_chain_key"`

	SendMsgNum uint32 `json:"send_msg_num"`
	RecvMsgNum uint32 `json:"recv_msg_num"`

	// PrevSendChainLen is the send counter at the moment of the last
	// rotation, so the peer can drain the prior chain before re-keying.
	PrevSendChainLen uint32 `json:"prev_send_chain_len"`

	SendGeneration uint32 `json:"send_generation"`
	RecvGeneration uint32 `json:"recv_generation"`

	// Skipped caches message keys derived ahead of the receive counter,
	// keyed by generation<<32|messageNumber. Bounded; single-use.
	Skipped map[uint64][]byte `json:"skipped,omitempty"`

	// StaticTX/StaticRX retain the directional session keys for the
	// non-ratcheted fallback mode. They provide no forward secrecy.
	StaticTX []byte `json:"static_tx,omitempty"`
	StaticRX []byte `json:"static_rx,omitempty"`
}

// PacketMode tags the wire envelope so the two encryption paths are
// explicitly distinguishable rather than inferred from field presence.
type PacketMode string

const (
	// ModeRatcheted packets carry chain position and are forward secret.
	ModeRatcheted PacketMode = "ratchet"
	// ModeStatic packets are sealed under the static directional key.
	ModeStatic PacketMode = "static"
)

// CipherPacket is the wire-level envelope. Opaque to everything outside the
// message cipher; the transport only frames and delivers it.
type CipherPacket struct {
	Mode       PacketMode `json:"mode"`
	Nonce      []byte     `json:"nonce"`
	Ciphertext []byte     `json:"ciphertext"`

	// Ratcheted mode only.
	MessageNumber   uint32 `json:"message_number,omitempty"`
	PrevChainLength uint32 `json:"prev_chain_length,omitempty"`
	Generation      uint32 `json:"generation,omitempty"`
}
