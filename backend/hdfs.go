/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package backend

import (
	"os"

	"github.com/colinmarc/hdfs/v2"

	"github.com/streamworks/streamctl/cmn/nlog"
)

// HDFSDriver confirms WAL objects written under a fixed HDFS directory.
// Grounded on the teacher's HDFS backend (same client library), trimmed
// to the single existence+size check this collaborator needs.
type HDFSDriver struct {
	client *hdfs.Client
	dir    string
}

func NewHDFSDriver(namenode, dir string) (*HDFSDriver, error) {
	client, err := hdfs.New(namenode)
	if err != nil {
		return nil, err
	}
	return &HDFSDriver{client: client, dir: dir}, nil
}

func (d *HDFSDriver) HeadObject(objectID uint64) (size int64, found bool, err error) {
	path := d.dir + "/" + objectKey(objectID)
	info, err := d.client.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		nlog.Errorf("backend/hdfs: Stat %s failed: %v", path, err)
		return 0, false, err
	}
	return info.Size(), true, nil
}
