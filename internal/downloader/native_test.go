package downloader

import (
	"sync"
	"testing"

	"github.com/kkdai/youtube/v2"
)

func TestUseAndroidClientConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			useAndroidClient()
		}()
	}
	wg.Wait()

	if youtube.DefaultClient != youtube.AndroidClient {
		t.Fatalf("default client = %+v, want the android client", youtube.DefaultClient)
	}
}
