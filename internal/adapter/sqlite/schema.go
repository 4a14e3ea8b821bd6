package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS users (
	handle     TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	handle     TEXT NOT NULL,
	uri        TEXT NOT NULL,
	cid        TEXT,
	text       TEXT,
	created_at TEXT,
	has_images INTEGER NOT NULL DEFAULT 1,
	UNIQUE(handle, uri)
);

CREATE TABLE IF NOT EXISTS images (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	handle           TEXT NOT NULL,
	post_uri         TEXT NOT NULL,
	image_index      INTEGER NOT NULL,
	thumb_url        TEXT,
	fullsize_url     TEXT,
	current_alt      TEXT,
	generated_alt    TEXT,
	last_applied_alt TEXT,
	last_status      TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	UNIQUE(handle, post_uri, image_index)
);
`

const upsertPostQuery = `
INSERT INTO posts (handle, uri, cid, text, created_at, has_images)
VALUES (?, ?, ?, ?, ?, 1)
ON CONFLICT(handle, uri) DO UPDATE SET
	cid = excluded.cid,
	text = excluded.text,
	created_at = excluded.created_at,
	has_images = 1;
`

// updated_at only moves when the row actually changes, so replaying the
// same scan leaves the table untouched.
const upsertScannedImageQuery = `
INSERT INTO images (handle, post_uri, image_index, thumb_url, fullsize_url, current_alt, generated_alt, last_status, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, 'scanned', ?)
ON CONFLICT(handle, post_uri, image_index) DO UPDATE SET
	thumb_url = excluded.thumb_url,
	fullsize_url = excluded.fullsize_url,
	current_alt = excluded.current_alt,
	generated_alt = excluded.generated_alt,
	last_status = 'scanned',
	updated_at = CASE
		WHEN images.thumb_url IS NOT excluded.thumb_url
		  OR images.fullsize_url IS NOT excluded.fullsize_url
		  OR images.current_alt IS NOT excluded.current_alt
		  OR images.generated_alt IS NOT excluded.generated_alt
		  OR images.last_status IS NOT 'scanned'
		THEN excluded.updated_at
		ELSE images.updated_at
	END;
`

const recordEditQuery = `
INSERT INTO images (handle, post_uri, image_index, current_alt, last_applied_alt, last_status, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(handle, post_uri, image_index) DO UPDATE SET
	current_alt = excluded.current_alt,
	last_applied_alt = excluded.last_applied_alt,
	last_status = excluded.last_status,
	updated_at = excluded.updated_at;
`

const listImagesQuery = `
SELECT handle, post_uri, image_index, thumb_url, fullsize_url, current_alt,
       generated_alt, last_applied_alt, last_status, updated_at
FROM images
WHERE handle = ?
ORDER BY post_uri, image_index;
`
