package postgres

const schema = `
CREATE TABLE IF NOT EXISTS users (
	handle     TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id         BIGSERIAL PRIMARY KEY,
	handle     TEXT NOT NULL,
	uri        TEXT NOT NULL,
	cid        TEXT,
	text       TEXT,
	created_at TIMESTAMPTZ,
	has_images BOOLEAN NOT NULL DEFAULT TRUE,
	UNIQUE (handle, uri)
);

CREATE TABLE IF NOT EXISTS images (
	id               BIGSERIAL PRIMARY KEY,
	handle           TEXT NOT NULL,
	post_uri         TEXT NOT NULL,
	image_index      INTEGER NOT NULL,
	thumb_url        TEXT,
	fullsize_url     TEXT,
	current_alt      TEXT,
	generated_alt    TEXT,
	last_applied_alt TEXT,
	last_status      TEXT NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	UNIQUE (handle, post_uri, image_index)
);
`

const upsertPostQuery = `
INSERT INTO posts (handle, uri, cid, text, created_at, has_images)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (handle, uri) DO UPDATE SET
	cid = EXCLUDED.cid,
	text = EXCLUDED.text,
	created_at = EXCLUDED.created_at,
	has_images = TRUE`

const upsertScannedImageQuery = `
INSERT INTO images (handle, post_uri, image_index, thumb_url, fullsize_url, current_alt, generated_alt, last_status, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'scanned', $8)
ON CONFLICT (handle, post_uri, image_index) DO UPDATE SET
	thumb_url = EXCLUDED.thumb_url,
	fullsize_url = EXCLUDED.fullsize_url,
	current_alt = EXCLUDED.current_alt,
	generated_alt = EXCLUDED.generated_alt,
	last_status = 'scanned',
	updated_at = CASE
		WHEN images.thumb_url IS DISTINCT FROM EXCLUDED.thumb_url
		  OR images.fullsize_url IS DISTINCT FROM EXCLUDED.fullsize_url
		  OR images.current_alt IS DISTINCT FROM EXCLUDED.current_alt
		  OR images.generated_alt IS DISTINCT FROM EXCLUDED.generated_alt
		  OR images.last_status <> 'scanned'
		THEN EXCLUDED.updated_at
		ELSE images.updated_at
	END`

const recordEditQuery = `
INSERT INTO images (handle, post_uri, image_index, current_alt, last_applied_alt, last_status, updated_at)
VALUES ($1, $2, $3, $4, $4, $5, $6)
ON CONFLICT (handle, post_uri, image_index) DO UPDATE SET
	current_alt = EXCLUDED.current_alt,
	last_applied_alt = EXCLUDED.last_applied_alt,
	last_status = EXCLUDED.last_status,
	updated_at = EXCLUDED.updated_at`

const listImagesQuery = `
SELECT handle, post_uri, image_index, thumb_url, fullsize_url, current_alt,
       generated_alt, last_applied_alt, last_status, updated_at
FROM images
WHERE handle = $1
ORDER BY post_uri, image_index`
