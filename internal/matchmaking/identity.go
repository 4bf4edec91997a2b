package matchmaking

// Identities 지갑 주소 <-> 연결 ID 매핑.
// 지갑당 활성 연결은 하나이며 나중에 바인딩한 연결이 이긴다.
type Identities struct {
	byWallet     map[string]string
	byConnection map[string]string
}

func NewIdentities() *Identities {
	return &Identities{
		byWallet:     make(map[string]string),
		byConnection: make(map[string]string),
	}
}

// Bind 이전 연결이 있으면 대체하고 그 연결 ID를 반환
func (i *Identities) Bind(wallet, connectionID string) (previous string) {
	if prev, ok := i.byWallet[wallet]; ok && prev != connectionID {
		delete(i.byConnection, prev)
		previous = prev
	}
	// 같은 연결이 다른 지갑으로 바꾼 경우
	if oldWallet, ok := i.byConnection[connectionID]; ok && oldWallet != wallet {
		delete(i.byWallet, oldWallet)
	}
	i.byWallet[wallet] = connectionID
	i.byConnection[connectionID] = wallet
	return previous
}

func (i *Identities) Unbind(wallet string) {
	if conn, ok := i.byWallet[wallet]; ok {
		delete(i.byConnection, conn)
		delete(i.byWallet, wallet)
	}
}

func (i *Identities) ConnectionFor(wallet string) (string, bool) {
	conn, ok := i.byWallet[wallet]
	return conn, ok
}

func (i *Identities) IdentityOf(connectionID string) (string, bool) {
	wallet, ok := i.byConnection[connectionID]
	return wallet, ok
}

func (i *Identities) Len() int {
	return len(i.byWallet)
}
