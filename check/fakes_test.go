package check

import (
	"github.com/yuvprotocol/node/pixel"
	"github.com/yuvprotocol/node/yuvtx"
)

type fakeChromaStore struct {
	byChroma map[pixel.Chroma]ChromaInfo
}

func newFakeChromaStore() *fakeChromaStore {
	return &fakeChromaStore{byChroma: make(map[pixel.Chroma]ChromaInfo)}
}

func (f *fakeChromaStore) ChromaMetadata(chroma pixel.Chroma) (ChromaInfo, bool) {
	info, ok := f.byChroma[chroma]
	return info, ok
}

func (f *fakeChromaStore) register(chroma pixel.Chroma, info ChromaInfo) {
	f.byChroma[chroma] = info
}

type fakeFrozenStore struct {
	frozen map[yuvtx.Outpoint]bool
}

func newFakeFrozenStore() *fakeFrozenStore {
	return &fakeFrozenStore{frozen: make(map[yuvtx.Outpoint]bool)}
}

func (f *fakeFrozenStore) IsFrozen(outpoint yuvtx.Outpoint) bool {
	return f.frozen[outpoint]
}
