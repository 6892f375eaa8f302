package orchestrator

import "sync"

type claim struct {
	scanId     string
	generation uint64
}

// claimSet records which scan context is working on a document, so two
// contexts never scan or commit the same document at once.
type claimSet struct {
	mu     sync.Mutex
	owners map[string]claim
}

func newClaimSet() *claimSet {
	return &claimSet{owners: make(map[string]claim)}
}

// claim succeeds when the document is free or already held by scanId.
func (c *claimSet) claim(documentId string, scanId string, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if owner, held := c.owners[documentId]; held && owner.scanId != scanId {
		return false
	}
	c.owners[documentId] = claim{scanId: scanId, generation: generation}
	return true
}

// release only drops the claim taken by that exact run.
func (c *claimSet) release(documentId string, scanId string, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owners[documentId] == (claim{scanId: scanId, generation: generation}) {
		delete(c.owners, documentId)
	}
}

func (c *claimSet) owner(documentId string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, held := c.owners[documentId]
	return owner.scanId, held
}

func (c *claimSet) releaseAll(scanId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for documentId, owner := range c.owners {
		if owner.scanId == scanId {
			delete(c.owners, documentId)
		}
	}
}
