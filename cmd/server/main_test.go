package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KyousabaMC/VeinMiner/internal/persistence/indexdb"
	persistlog "github.com/KyousabaMC/VeinMiner/internal/persistence/log"
	"github.com/KyousabaMC/VeinMiner/internal/persistence/r2s3"
	"github.com/KyousabaMC/VeinMiner/internal/persistence/snapshot"
)

type recordingSink struct {
	got []persistlog.AuditEntry
	err error
}

func (r *recordingSink) WriteAudit(e persistlog.AuditEntry) error {
	r.got = append(r.got, e)
	return r.err
}

func TestFanoutAudit_WritesEverySink(t *testing.T) {
	failing := &recordingSink{err: errors.New("disk full")}
	ok := &recordingSink{}
	f := fanoutAudit{failing, ok}

	err := f.WriteAudit(persistlog.AuditEntry{Player: "Steve"})
	assert.EqualError(t, err, "disk full")
	assert.Len(t, failing.got, 1)
	assert.Len(t, ok.got, 1)
}

type pathRecorder []string

func (p *pathRecorder) RecordSnapshot(path string, _ snapshot.SnapshotV1) {
	*p = append(*p, path)
}

func TestFanoutSnapshots(t *testing.T) {
	a, b := &pathRecorder{}, &pathRecorder{}
	fanoutSnapshots{a, b}.RecordSnapshot("/data/1.snap.zst", snapshot.SnapshotV1{})
	assert.Equal(t, []string{"/data/1.snap.zst"}, []string(*a))
	assert.Equal(t, []string{"/data/1.snap.zst"}, []string(*b))
}

func TestWriteMirrorMetrics(t *testing.T) {
	var b strings.Builder
	writeMirrorMetrics(&b, r2s3.Stats{UploadSuccessTotal: 4, UploadFailTotal: 1})
	assert.Contains(t, b.String(), `veinminer_mirror_uploads_total{result="ok"} 4`)
	assert.Contains(t, b.String(), `veinminer_mirror_uploads_total{result="error"} 1`)
}

func TestWriteIndexMetrics(t *testing.T) {
	var b strings.Builder
	writeIndexMetrics(&b, indexdb.Stats{QueueDepth: 3, QueueCapacity: 10, WrittenTotal: 7, DropAuditTotal: 2})
	out := b.String()
	assert.Contains(t, out, "veinminer_index_queue_depth 3\n")
	assert.Contains(t, out, "veinminer_index_written_total 7\n")
	assert.Contains(t, out, `veinminer_index_dropped_total{kind="audit"} 2`)
	assert.Contains(t, out, `veinminer_index_dropped_total{kind="snapshot"} 0`)
}

func TestIsLoopbackRemote(t *testing.T) {
	assert.True(t, isLoopbackRemote("127.0.0.1:1234"))
	assert.True(t, isLoopbackRemote("[::1]:1234"))
	assert.False(t, isLoopbackRemote("10.0.0.2:1234"))
	assert.False(t, isLoopbackRemote("not-an-ip"))
}

func TestEnvBool(t *testing.T) {
	t.Setenv("VEINMINER_TEST_FLAG", "yes")
	assert.True(t, envBool("VEINMINER_TEST_FLAG", false))
	t.Setenv("VEINMINER_TEST_FLAG", "off")
	assert.False(t, envBool("VEINMINER_TEST_FLAG", true))
	t.Setenv("VEINMINER_TEST_FLAG", "maybe")
	assert.True(t, envBool("VEINMINER_TEST_FLAG", true))

	t.Setenv("DEPLOY_ENV", "production")
	assert.False(t, defaultEnableAdminHTTP())
	t.Setenv("DEPLOY_ENV", "dev")
	assert.True(t, defaultEnableAdminHTTP())
}
